package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/protoerr"
	"github.com/google/uuid"
)

const (
	prefixUser      = "user:"
	prefixMerkle    = "merkle:"
	prefixTxCounter = "txseq:"
	prefixTx        = "tx:"
	prefixLeaf      = "leaf:"
)

// LevelStateStore implements the StateStore boundary from the spec's
// persistence layout (user/transaction/leaf) on top of a generic DB,
// keeping the three rows' writes atomic via a single Batch.
type LevelStateStore struct {
	db DB
}

// NewLevelStateStore wraps db as a StateStore.
func NewLevelStateStore(db DB) *LevelStateStore {
	return &LevelStateStore{db: db}
}

// LoadUser returns the persisted user record, or a NotFound protoerr.
func (s *LevelStateStore) LoadUser(id uuid.UUID) (*identity.User, error) {
	data, err := s.db.Get([]byte(prefixUser + id.String()))
	if err != nil {
		if errors.Is(err, protoerr.ErrNotFound) {
			return nil, protoerr.New(protoerr.KindNotFound, "user not found")
		}
		return nil, err
	}
	var u identity.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("storage: decode user %s: %w", id, err)
	}
	return &u, nil
}

// LoadMerkle returns the latest transaction root recorded for id, or "" if
// the user has never committed a transaction.
func (s *LevelStateStore) LoadMerkle(id uuid.UUID) (string, error) {
	data, err := s.db.Get([]byte(prefixMerkle + id.String()))
	if err != nil {
		if errors.Is(err, protoerr.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// SaveUser atomically upserts user, appends a transaction row for request,
// and appends the latest leaf, recomputing the root over all of the user's
// leaves. Any encoding failure aborts before the batch is written, so
// nothing partially commits.
func (s *LevelStateStore) SaveUser(user *identity.User, request mutation.Request) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("storage: encode user %s: %w", user.ID, err)
	}
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("storage: encode request for user %s: %w", user.ID, err)
	}

	leaves, err := s.leavesFor(user.ID)
	if err != nil {
		return fmt.Errorf("storage: read leaves for user %s: %w", user.ID, err)
	}
	leaves = append(leaves, reqJSON)
	root := ComputeLeafRoot(leaves)

	txID, err := s.nextTxID(user.ID)
	if err != nil {
		return fmt.Errorf("storage: next transaction id for user %s: %w", user.ID, err)
	}

	batch := s.db.NewBatch()
	batch.Set([]byte(prefixUser+user.ID.String()), userJSON)
	batch.Set([]byte(prefixMerkle+user.ID.String()), []byte(root))
	batch.Set(txKey(user.ID, txID), reqJSON)
	batch.Set(leafKey(user.ID, txID), reqJSON)
	batch.Set(counterKey(user.ID), encodeUint64(txID))
	return batch.Write()
}

func (s *LevelStateStore) leavesFor(id uuid.UUID) ([][]byte, error) {
	it := s.db.NewIterator([]byte(prefixLeaf + id.String() + ":"))
	defer it.Release()
	var leaves [][]byte
	for it.Next() {
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		leaves = append(leaves, v)
	}
	return leaves, it.Error()
}

func (s *LevelStateStore) nextTxID(id uuid.UUID) (uint64, error) {
	data, err := s.db.Get(counterKey(id))
	if err != nil {
		if errors.Is(err, protoerr.ErrNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return decodeUint64(data) + 1, nil
}

func txKey(id uuid.UUID, txID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixTx, id, txID))
}

func leafKey(id uuid.UUID, txID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixLeaf, id, txID))
}

func counterKey(id uuid.UUID) []byte {
	return []byte(prefixTxCounter + id.String())
}

func encodeUint64(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Package indexer maintains a secondary reverse index over committed link
// mutations, so a node can answer "who has linked to this user" without
// scanning every user's state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/beco/beconode/events"
	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/protoerr"
	"github.com/beco/beconode/storage"
)

const prefixLinkedBy = "idx:linked_by:"

// Indexer subscribes to commit events and updates the linked-by index.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to commit events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventCommitted, idx.onCommitted)
	return idx
}

// GetLinkedBy returns the IDs of users that have linked to userID.
func (idx *Indexer) GetLinkedBy(userID string) ([]string, error) {
	return idx.getList(prefixLinkedBy + userID)
}

func (idx *Indexer) onCommitted(ev events.Event) {
	kind, _ := ev.Data["kind"].(string)
	targetID, _ := ev.Data["target_id"].(string)
	if targetID == "" {
		return
	}
	owner := ev.UserID.String()
	switch mutation.Kind(kind) {
	case mutation.AddLinkedUser:
		if err := idx.addToList(prefixLinkedBy+targetID, owner); err != nil {
			log.Printf("[indexer] link index write failed (target=%s owner=%s): %v", targetID, owner, err)
		}
	case mutation.RemoveLinkedUser:
		if err := idx.removeFromList(prefixLinkedBy+targetID, owner); err != nil {
			log.Printf("[indexer] link index remove failed (target=%s owner=%s): %v", targetID, owner, err)
		}
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, protoerr.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	for _, id := range ids {
		if id == value {
			return nil // already present
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

func (idx *Indexer) removeFromList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	if ids == nil {
		return nil
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != value {
			filtered = append(filtered, id)
		}
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

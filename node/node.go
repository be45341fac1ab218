// Package node wires together the protocol components into one running
// node, gated by the configured role (user, validator, or storage).
package node

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/beco/beconode/chain"
	_ "github.com/beco/beconode/chain/evm"
	_ "github.com/beco/beconode/chain/xrpl"
	"github.com/beco/beconode/commitpipe"
	"github.com/beco/beconode/config"
	"github.com/beco/beconode/corroborate"
	"github.com/beco/beconode/envelope"
	"github.com/beco/beconode/events"
	"github.com/beco/beconode/gossip"
	"github.com/beco/beconode/identity"
	"github.com/beco/beconode/indexer"
	"github.com/beco/beconode/mutation"
	_ "github.com/beco/beconode/mutation/modules/account"
	_ "github.com/beco/beconode/mutation/modules/linkeduser"
	_ "github.com/beco/beconode/mutation/modules/name"
	"github.com/beco/beconode/nodekey"
	"github.com/beco/beconode/pending"
	"github.com/beco/beconode/protoerr"
	"github.com/beco/beconode/storage"
	"github.com/beco/beconode/validatorproto"
	"github.com/google/uuid"
)

// Node is one running participant: every role runs gossip transport and a
// router; validator role additionally runs the serializer/tally, user role
// additionally runs corroboration and the commit pipeline, storage role
// additionally persists every committed user.
type Node struct {
	cfg       *config.Config
	identity  nodekey.Identity
	db        *storage.LevelDB
	store     *storage.LevelStateStore
	emitter   *events.Emitter
	idx       *indexer.Indexer
	transport gossip.Transport
	router    *gossip.Router
	pendingReg *pending.Registry
	users     *userCache
	keyFactory chain.KeyFactory

	serializer *validatorproto.Serializer
	engine     *corroborate.Engine
	pipeline   *commitpipe.Pipeline
}

// New constructs a Node from cfg, opening its data directory and keystore
// and wiring the components its role requires, but does not start network
// I/O — call Start for that.
func New(cfg *config.Config, password string) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("node: mkdir data dir: %w", err)
	}
	if cfg.PendingTimeoutMS == 0 {
		cfg.PendingTimeoutMS = int(pending.DefaultTimeout / time.Millisecond)
	}

	id, err := nodekey.LoadOrCreate(cfg.KeystorePath, password)
	if err != nil {
		return nil, fmt.Errorf("node: load identity: %w", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir + "/state")
	if err != nil {
		return nil, fmt.Errorf("node: open db: %w", err)
	}
	store := storage.NewLevelStateStore(db)

	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("node: tls: %w", err)
	}

	gossipAddr := fmt.Sprintf(":%d", cfg.GossipPort)
	transport := gossip.NewTCPTransport(cfg.NodeID, gossipAddr, tlsCfg)
	router := gossip.NewRouter(transport)

	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	n := &Node{
		cfg:        cfg,
		identity:   id,
		db:         db,
		store:      store,
		emitter:    emitter,
		idx:        idx,
		transport:  transport,
		router:     router,
		pendingReg: pending.NewRegistry(),
		users:      newUserCache(),
		keyFactory: chain.DefaultFactory(),
	}

	switch cfg.Role {
	case config.RoleValidator:
		n.serializer = validatorproto.NewSerializer(router, cfg.PeerCountBias)
		router.Subscribe(string(envelope.StatusPropose), n.serializer.HandlePropose)
		router.Subscribe(string(envelope.StatusCorroborate), n.serializer.HandleVote)
	case config.RoleStorage:
		// A storage node archives committed state but never votes: it has
		// no stake in a proposal's outcome, only in durably keeping the
		// result, so it skips corroborate.Engine entirely.
		self := id.PeerID()
		n.pipeline = commitpipe.New(self, n.users, store, mutation.Global(), n.pendingReg, router, emitter, n.keyFactory)
		router.Subscribe(string(envelope.StatusValidated), n.pipeline.HandleValidated)
		router.Subscribe(string(envelope.StatusFailed), n.pipeline.HandleFailed)
		router.Subscribe(string(envelope.StatusResponse), n.pipeline.HandleResponse)

		coldLoad := gossip.NewColdLoadServer(router, coldLoadLookup(store), coldLoadPersist(store))
		router.Subscribe(string(envelope.StatusLoad), coldLoad.HandleRequest)
		router.Subscribe(string(envelope.StatusFetch), coldLoad.HandleRequest)
		router.Subscribe(string(envelope.StatusNew), coldLoad.HandleNew)
	default:
		self := id.PeerID()
		n.engine = corroborate.NewEngine(self, n.users.Get, router)
		n.pipeline = commitpipe.New(self, n.users, store, mutation.Global(), n.pendingReg, router, emitter, n.keyFactory)
		router.Subscribe(string(envelope.StatusCorroborate), n.engine.HandleCorroborate)
		router.Subscribe(string(envelope.StatusValidated), n.pipeline.HandleValidated)
		router.Subscribe(string(envelope.StatusFailed), n.pipeline.HandleFailed)
		router.Subscribe(string(envelope.StatusResponse), n.pipeline.HandleResponse)
	}

	return n, nil
}

// Start opens the gossip listener and dials configured seed peers.
func (n *Node) Start() error {
	if err := n.router.Start(); err != nil {
		return fmt.Errorf("node: gossip start: %w", err)
	}
	for _, sp := range n.cfg.SeedPeers {
		if err := n.router.Dial(sp.ID, sp.Addr); err != nil {
			log.Printf("[node] dial seed peer %s (%s): %v", sp.ID, sp.Addr, err)
			continue
		}
		log.Printf("[node] connected to seed peer %s (%s)", sp.ID, sp.Addr)
	}
	if n.serializer != nil {
		done := make(chan struct{})
		go n.serializer.RunJanitor(2*time.Second, time.Duration(n.cfg.PendingTimeoutMS)*time.Millisecond, done)
	}
	return nil
}

// Stop shuts down gossip and closes the store.
func (n *Node) Stop() {
	n.router.Stop()
	n.db.Close()
}

// Indexer exposes the linked-by index for RPC reads.
func (n *Node) Indexer() *indexer.Indexer { return n.idx }

// AddUser creates a brand-new user record, entirely local — there is no
// existing owner to corroborate against, so this never goes through
// PROPOSE/CORROBORATE. It broadcasts a best-effort NEW announcement so any
// storage nodes on the network can archive a copy without waiting for a
// first mutation to commit.
func (n *Node) AddUser() (identity.PublicUser, error) {
	user := identity.NewUser(uuid.New())
	n.users.Put(user)
	req, _ := mutation.New(mutation.AddUser, mutation.AddUserPayload{})
	if err := n.store.SaveUser(user, req); err != nil {
		return identity.PublicUser{}, protoerr.Wrap(protoerr.KindInternal, "persist new user", err)
	}
	if userJSON, err := json.Marshal(user); err == nil {
		if err := n.router.Publish(gossip.BuildNewAnnouncement(user.ID, userJSON)); err != nil {
			log.Printf("[node] broadcast NEW for user %s: %v", user.ID, err)
		}
	}
	return user.PublicView(identity.PublicUser{ID: user.ID}), nil
}

// ListUser returns the public projection of userID as visible to
// callingUser. It checks the in-memory replica first, then the local
// store, then — if this node has gossip peers — a network cold LOAD
// before giving up with NotFound.
func (n *Node) ListUser(userID, callingUser uuid.UUID) (identity.PublicUser, error) {
	user, ok := n.users.Get(userID)
	if !ok {
		loaded, err := n.store.LoadUser(userID)
		if err != nil {
			loaded, err = n.coldLoad(userID, callingUser)
			if err != nil {
				return identity.PublicUser{}, err
			}
		}
		user = loaded
		n.users.Put(user)
	}
	return user.PublicView(identity.PublicUser{ID: callingUser}), nil
}

// coldLoad requests userID from the network via LOAD and blocks for a
// RESPONSE or timeout. A LOAD response is decoded and installed into
// n.users by the commit pipeline itself (unlike FETCH, which leaves local
// state untouched), so coldLoad only needs to re-read it afterward.
func (n *Node) coldLoad(userID, callingUser uuid.UUID) (*identity.User, error) {
	if n.router.ConnectedPeers() == 0 {
		return nil, protoerr.New(protoerr.KindNotFound, "user not found")
	}

	req := gossip.BuildLoadRequest(userID, callingUser, n.identity.PeerID())
	fp := envelope.Compute(req)
	timeout := time.Duration(n.cfg.PendingTimeoutMS) * time.Millisecond
	waiter := n.pendingReg.Create(fp, timeout)

	if err := n.router.Publish(req); err != nil {
		n.pendingReg.Remove(fp)
		return nil, protoerr.Wrap(protoerr.KindInternal, "publish load request", err)
	}

	outcome := waiter.Wait()
	n.pendingReg.Remove(fp)
	if outcome.Status != envelope.StatusResponse {
		return nil, protoerr.New(protoerr.KindNotFound, "user not found")
	}
	if loaded, ok := n.users.Get(userID); ok {
		return loaded, nil
	}
	return nil, protoerr.New(protoerr.KindNotFound, "user not found")
}

// coldLoadLookup adapts a Store into the gossip.ColdLoadLookup a
// ColdLoadServer uses to answer LOAD/FETCH requests.
func coldLoadLookup(store *storage.LevelStateStore) gossip.ColdLoadLookup {
	return func(id uuid.UUID) (json.RawMessage, error) {
		user, err := store.LoadUser(id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(user)
	}
}

// coldLoadPersist adapts a Store into the gossip.ColdLoadPersist a
// ColdLoadServer uses to archive NEW announcements.
func coldLoadPersist(store *storage.LevelStateStore) gossip.ColdLoadPersist {
	return func(id uuid.UUID, data json.RawMessage) error {
		var user identity.User
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		req, _ := mutation.New(mutation.AddUser, mutation.AddUserPayload{})
		return store.SaveUser(&user, req)
	}
}

// Propose runs a quorum-gated mutation: a synchronous local permission
// check, then PROPOSE over gossip, then a bounded wait for VALIDATED or a
// terminal rejection.
func (n *Node) Propose(kind mutation.Kind, payload any, userID, callingUser uuid.UUID) (identity.PublicUser, error) {
	req, err := mutation.New(kind, payload)
	if err != nil {
		return identity.PublicUser{}, protoerr.Wrap(protoerr.KindInvalidRequest, "encode request", err)
	}

	user, ok := n.users.Get(userID)
	if !ok {
		return identity.PublicUser{}, protoerr.New(protoerr.KindNotFound, "user not found")
	}
	if err := corroborate.CheckProposal(user, req, callingUser); err != nil {
		return identity.PublicUser{}, err
	}

	env := &envelope.Envelope{
		Request:     req,
		UserID:      userID,
		CallingUser: callingUser,
		Status:      envelope.StatusPropose,
	}
	fp := envelope.Compute(env)
	timeout := time.Duration(n.cfg.PendingTimeoutMS) * time.Millisecond
	deadline := time.Now().Add(timeout)
	waiter := n.pendingReg.Create(fp, timeout)
	env.AddSignature(envelope.StatusValid, n.identity.PeerID())

	if err := n.router.Publish(env); err != nil {
		n.pendingReg.Remove(fp)
		return identity.PublicUser{}, protoerr.Wrap(protoerr.KindInternal, "publish proposal", err)
	}

	outcome := waiter.Wait()
	n.pendingReg.Remove(fp)

	switch outcome.Status {
	case envelope.StatusValidated:
		u, _ := n.users.Get(userID)
		return u.PublicView(identity.PublicUser{ID: callingUser}), nil
	case envelope.StatusNotFound:
		return identity.PublicUser{}, protoerr.New(protoerr.KindNotFound, "validator found no in-flight request")
	case envelope.StatusFailed:
		// The registry resolves an expired waiter as FAILED too; tell the
		// two apart by whether the deadline has passed.
		if !time.Now().Before(deadline) {
			return identity.PublicUser{}, protoerr.New(protoerr.KindTimeout, "deadline exceeded waiting for validation")
		}
		return identity.PublicUser{}, protoerr.New(protoerr.KindInvalidRequest, "quorum rejected the request")
	default:
		return identity.PublicUser{}, protoerr.New(protoerr.KindTimeout, "deadline exceeded waiting for validation")
	}
}

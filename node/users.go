package node

import (
	"sync"

	"github.com/beco/beconode/identity"
	"github.com/google/uuid"
)

// userCache is the node's in-memory replica set: short-critical-section
// reader/writer lock over a plain map, per the concurrency model's "users
// map itself uses a reader/writer lock" rule.
type userCache struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*identity.User
}

func newUserCache() *userCache {
	return &userCache{users: make(map[uuid.UUID]*identity.User)}
}

func (c *userCache) Get(id uuid.UUID) (*identity.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *userCache) Put(user *identity.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.ID] = user
}

func (c *userCache) Delete(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, id)
}

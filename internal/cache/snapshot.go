package cache

import (
	"chatapp-client/internal/models"
	"sort"
	"sync"
)

// Snapshots are detached copies built under the read lock. Callers may encode
// or hold them while events keep mutating the cache.

func snapshotUser(user *models.User) *models.User {
	if user == nil {
		return nil
	}
	copied := *user
	return &copied
}

func snapshotServer(server *models.Server) *models.Server {
	copied := *server
	copied.ChannelIDs = append([]int64(nil), server.ChannelIDs...)

	copied.Members = make(map[int64]*models.Member, len(server.Members))
	for id, member := range server.Members {
		m := *member
		m.User = snapshotUser(member.User)
		m.Roles = append(models.IDList(nil), member.Roles...)
		copied.Members[id] = &m
	}

	copied.Roles = make(map[int64]*models.Role, len(server.Roles))
	for id, role := range server.Roles {
		r := *role
		copied.Roles[id] = &r
	}
	return &copied
}

func (c *Cache) SelfSnapshot() *models.User {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return snapshotUser(c.self)
}

func (c *Cache) UserSnapshot(id int64) (*models.User, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	user, exists := c.users[id]
	return snapshotUser(user), exists
}

func (c *Cache) ServerSnapshot(id int64) (*models.Server, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[id]
	if !exists {
		return nil, false
	}
	return snapshotServer(server), true
}

func (c *Cache) ServerSnapshots() []*models.Server {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	servers := make([]*models.Server, 0, len(c.servers))
	for _, server := range c.servers {
		servers = append(servers, snapshotServer(server))
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].ID < servers[j].ID })
	return servers
}

// RLocker holds the cache's read lock, for encoding live objects in place.
func (c *Cache) RLocker() sync.Locker {
	return c.mutex.RLocker()
}

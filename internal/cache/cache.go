package cache

import (
	"chatapp-client/internal/models"
	"sort"
	"sync"
)

const DefaultMaxMessages = 1000

// Cache is the local mirror of remote entities. Every collection holds at most
// one object per id. Structural updates swap the stored pointer, presence and
// member roles are mutated in place.
type Cache struct {
	mutex sync.RWMutex

	self       *models.User
	users      map[int64]*models.User
	servers    map[int64]*models.Server
	channels   map[int64]*models.Channel
	pmChannels map[int64]*models.Channel

	maxMessages int
}

type Stats struct {
	Users      int `json:"users"`
	Servers    int `json:"servers"`
	Channels   int `json:"channels"`
	PMChannels int `json:"pmChannels"`
	Messages   int `json:"messages"`
}

func New(maxMessages int) *Cache {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Cache{
		users:       make(map[int64]*models.User),
		servers:     make(map[int64]*models.Server),
		channels:    make(map[int64]*models.Channel),
		pmChannels:  make(map[int64]*models.Channel),
		maxMessages: maxMessages,
	}
}

func (c *Cache) Self() *models.User {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.self
}

func (c *Cache) SetSelf(user *models.User) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.self = user
}

func (c *Cache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := Stats{
		Users:      len(c.users),
		Servers:    len(c.servers),
		Channels:   len(c.channels),
		PMChannels: len(c.pmChannels),
	}
	for _, channel := range c.channels {
		stats.Messages += len(channel.Messages)
	}
	for _, channel := range c.pmChannels {
		stats.Messages += len(channel.Messages)
	}
	return stats
}

// users

func (c *Cache) User(id int64) (*models.User, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	user, exists := c.users[id]
	return user, exists
}

// AddUser stores the user unless one with the same id is cached, and returns
// the cached one.
func (c *Cache) AddUser(user *models.User) *models.User {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cached, exists := c.users[user.ID]; exists {
		return cached
	}
	c.users[user.ID] = user
	return user
}

// ReplaceUser swaps the cached user for a new object. Members of every server
// pointing at the old object are repointed so they keep resolving to the
// current identity.
func (c *Cache) ReplaceUser(user *models.User) (old *models.User) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	old = c.users[user.ID]
	c.users[user.ID] = user
	if old == nil {
		return nil
	}
	for _, server := range c.servers {
		if member, exists := server.Members[user.ID]; exists && member.User == old {
			member.User = user
		}
	}
	for _, channel := range c.pmChannels {
		if channel.Recipient == old {
			channel.Recipient = user
		}
	}
	return old
}

func (c *Cache) SetPresence(userID int64, status string, gameID *int64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	user, exists := c.users[userID]
	if !exists {
		return false
	}
	user.Status = status
	user.GameID = gameID
	return true
}

func (c *Cache) Users() []*models.User {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	users := make([]*models.User, 0, len(c.users))
	for _, user := range c.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// servers

func (c *Cache) Server(id int64) (*models.Server, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[id]
	return server, exists
}

func (c *Cache) AddServer(server *models.Server) *models.Server {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cached, exists := c.servers[server.ID]; exists {
		return cached
	}
	if server.Members == nil {
		server.Members = make(map[int64]*models.Member)
	}
	if server.Roles == nil {
		server.Roles = make(map[int64]*models.Role)
	}
	c.servers[server.ID] = server
	return server
}

// ReplaceServer swaps the stored server, keeping the channel list, members and
// roles of the old one.
func (c *Cache) ReplaceServer(server *models.Server) (old *models.Server) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	old, exists := c.servers[server.ID]
	if !exists {
		return nil
	}
	server.ChannelIDs = old.ChannelIDs
	server.Members = old.Members
	server.Roles = old.Roles
	c.servers[server.ID] = server
	return old
}

// RemoveServer drops the server together with the channels it owns.
func (c *Cache) RemoveServer(id int64) (*models.Server, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[id]
	if !exists {
		return nil, false
	}
	for _, channelID := range server.ChannelIDs {
		delete(c.channels, channelID)
	}
	delete(c.servers, id)
	return server, true
}

func (c *Cache) Servers() []*models.Server {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	servers := make([]*models.Server, 0, len(c.servers))
	for _, server := range c.servers {
		servers = append(servers, server)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].ID < servers[j].ID })
	return servers
}

// channels

// Channel looks through server channels first, then PM channels.
func (c *Cache) Channel(id int64) (*models.Channel, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.channel(id)
}

func (c *Cache) channel(id int64) (*models.Channel, bool) {
	if channel, exists := c.channels[id]; exists {
		return channel, true
	}
	channel, exists := c.pmChannels[id]
	return channel, exists
}

func (c *Cache) PMChannel(id int64) (*models.Channel, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	channel, exists := c.pmChannels[id]
	return channel, exists
}

func (c *Cache) PMChannelWith(userID int64) (*models.Channel, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, channel := range c.pmChannels {
		if channel.Recipient != nil && channel.Recipient.ID == userID {
			return channel, true
		}
	}
	return nil, false
}

// AddChannel stores a server channel and appends it to its server's channel
// list when the server is cached.
func (c *Cache) AddChannel(channel *models.Channel) *models.Channel {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cached, exists := c.channels[channel.ID]; exists {
		return cached
	}
	c.channels[channel.ID] = channel
	if server, exists := c.servers[channel.ServerID]; exists {
		attached := false
		for _, id := range server.ChannelIDs {
			if id == channel.ID {
				attached = true
				break
			}
		}
		if !attached {
			server.ChannelIDs = append(server.ChannelIDs, channel.ID)
		}
	}
	return channel
}

func (c *Cache) AddPMChannel(channel *models.Channel) *models.Channel {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cached, exists := c.pmChannels[channel.ID]; exists {
		return cached
	}
	c.pmChannels[channel.ID] = channel
	return channel
}

// ReplaceChannel swaps the stored channel. The cached message sequence moves
// to the new object.
func (c *Cache) ReplaceChannel(channel *models.Channel) (old *models.Channel) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	index := c.channels
	old, exists := c.channels[channel.ID]
	if !exists {
		index = c.pmChannels
		old, exists = c.pmChannels[channel.ID]
	}
	if !exists {
		return nil
	}
	channel.Messages = old.Messages
	index[channel.ID] = channel
	return old
}

// RemoveChannel detaches the channel from its server and drops it.
func (c *Cache) RemoveChannel(id int64) (*models.Channel, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if channel, exists := c.pmChannels[id]; exists {
		delete(c.pmChannels, id)
		return channel, true
	}

	channel, exists := c.channels[id]
	if !exists {
		return nil, false
	}
	c.detach(channel)
	delete(c.channels, id)
	return channel, true
}

// DetachChannel removes the channel from its server's channel list but keeps
// it in the channel index.
func (c *Cache) DetachChannel(id int64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	channel, exists := c.channels[id]
	if !exists {
		return false
	}
	return c.detach(channel)
}

func (c *Cache) detach(channel *models.Channel) bool {
	server, exists := c.servers[channel.ServerID]
	if !exists {
		return false
	}
	for i, channelID := range server.ChannelIDs {
		if channelID == channel.ID {
			server.ChannelIDs = append(server.ChannelIDs[:i:i], server.ChannelIDs[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cache) ServerChannels(serverID int64) []*models.Channel {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil
	}
	channels := make([]*models.Channel, 0, len(server.ChannelIDs))
	for _, id := range server.ChannelIDs {
		if channel, exists := c.channels[id]; exists {
			channels = append(channels, channel)
		}
	}
	return channels
}

// messages

func (c *Cache) Message(channelID int64, messageID int64) (*models.Message, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	channel, exists := c.channel(channelID)
	if !exists {
		return nil, false
	}
	msg, _ := channel.Message(messageID)
	return msg, msg != nil
}

// AppendMessage adds the message to its channel in arrival order, dropping the
// oldest entries past the limit. A message id already cached is replaced in
// place instead.
func (c *Cache) AppendMessage(msg *models.Message) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	channel, exists := c.channel(msg.ChannelID)
	if !exists {
		return false
	}
	if _, i := channel.Message(msg.ID); i >= 0 {
		channel.Messages[i] = msg
		return true
	}
	channel.Messages = append(channel.Messages, msg)
	if overflow := len(channel.Messages) - c.maxMessages; overflow > 0 {
		channel.Messages = append([]*models.Message(nil), channel.Messages[overflow:]...)
	}
	return true
}

func (c *Cache) ReplaceMessage(msg *models.Message) (old *models.Message) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	channel, exists := c.channel(msg.ChannelID)
	if !exists {
		return nil
	}
	old, i := channel.Message(msg.ID)
	if i < 0 {
		return nil
	}
	channel.Messages[i] = msg
	return old
}

func (c *Cache) RemoveMessage(channelID int64, messageID int64) (*models.Message, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	channel, exists := c.channel(channelID)
	if !exists {
		return nil, false
	}
	msg, i := channel.Message(messageID)
	if i < 0 {
		return nil, false
	}
	channel.Messages = append(channel.Messages[:i:i], channel.Messages[i+1:]...)
	return msg, true
}

func (c *Cache) Messages(channelID int64) []*models.Message {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	channel, exists := c.channel(channelID)
	if !exists {
		return nil
	}
	return append([]*models.Message(nil), channel.Messages...)
}

// AllMessages concatenates the cached messages of every channel.
func (c *Cache) AllMessages() []*models.Message {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var msgs []*models.Message
	for _, channel := range c.channels {
		msgs = append(msgs, channel.Messages...)
	}
	for _, channel := range c.pmChannels {
		msgs = append(msgs, channel.Messages...)
	}
	return msgs
}

// members

func (c *Cache) Member(serverID int64, userID int64) (*models.Member, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil, false
	}
	member, exists := server.Members[userID]
	return member, exists
}

func (c *Cache) AddMember(member *models.Member) (*models.Member, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[member.ServerID]
	if !exists {
		return nil, false
	}
	if cached, exists := server.Members[member.User.ID]; exists {
		return cached, true
	}
	server.Members[member.User.ID] = member
	return member, true
}

func (c *Cache) RemoveMember(serverID int64, userID int64) (*models.Member, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil, false
	}
	member, exists := server.Members[userID]
	if !exists {
		return nil, false
	}
	delete(server.Members, userID)
	return member, true
}

func (c *Cache) SetMemberRoles(serverID int64, userID int64, roles models.IDList) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[serverID]
	if !exists {
		return false
	}
	member, exists := server.Members[userID]
	if !exists {
		return false
	}
	member.Roles = roles
	return true
}

// Resolve returns the member record of the user in the server when one is
// cached, otherwise the user itself.
func (c *Cache) Resolve(serverID int64, user *models.User) models.Person {
	if serverID == 0 {
		return user
	}
	if member, exists := c.Member(serverID, user.ID); exists {
		return member
	}
	return user
}

// roles

func (c *Cache) Role(serverID int64, roleID int64) (*models.Role, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil, false
	}
	role, exists := server.Roles[roleID]
	return role, exists
}

// PutRole stores the role on its server, replacing any role with the same id.
func (c *Cache) PutRole(role *models.Role) (old *models.Role, ok bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[role.ServerID]
	if !exists {
		return nil, false
	}
	old = server.Roles[role.ID]
	server.Roles[role.ID] = role
	return old, true
}

func (c *Cache) RemoveRole(serverID int64, roleID int64) (*models.Role, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil, false
	}
	role, exists := server.Roles[roleID]
	if !exists {
		return nil, false
	}
	delete(server.Roles, roleID)
	return role, true
}

func (c *Cache) Roles(serverID int64) []*models.Role {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	server, exists := c.servers[serverID]
	if !exists {
		return nil
	}
	roles := make([]*models.Role, 0, len(server.Roles))
	for _, role := range server.Roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Position != roles[j].Position {
			return roles[i].Position < roles[j].Position
		}
		return roles[i].ID < roles[j].ID
	})
	return roles
}

package synchronizer

import (
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
)

type readyPayload struct {
	User              models.User      `json:"user"`
	Guilds            []serverPayload  `json:"guilds"`
	PrivateChannels   []channelPayload `json:"private_channels"`
	HeartbeatInterval int64            `json:"heartbeat_interval"`
	SessionID         string           `json:"session_id"`
}

type serverPayload struct {
	ID          int64             `json:"id,string"`
	Name        string            `json:"name"`
	Region      string            `json:"region"`
	OwnerID     int64             `json:"owner_id,string"`
	Icon        string            `json:"icon"`
	Unavailable bool              `json:"unavailable"`
	Channels    []channelPayload  `json:"channels"`
	Members     []memberPayload   `json:"members"`
	Roles       []rolePayload     `json:"roles"`
	Presences   []presencePayload `json:"presences"`
}

func (p serverPayload) server() *models.Server {
	return &models.Server{
		ID:      p.ID,
		Name:    p.Name,
		Region:  p.Region,
		OwnerID: p.OwnerID,
		Icon:    p.Icon,
	}
}

type channelPayload struct {
	ID        int64        `json:"id,string"`
	GuildID   int64        `json:"guild_id,string"`
	Name      string       `json:"name"`
	Topic     string       `json:"topic"`
	Type      string       `json:"type"`
	Position  int          `json:"position"`
	IsPrivate bool         `json:"is_private"`
	Recipient *models.User `json:"recipient"`
}

func (p channelPayload) channel() *models.Channel {
	return &models.Channel{
		ID:        p.ID,
		ServerID:  p.GuildID,
		Name:      p.Name,
		Topic:     p.Topic,
		Type:      p.Type,
		Position:  p.Position,
		IsPrivate: p.IsPrivate,
	}
}

type memberPayload struct {
	GuildID  int64         `json:"guild_id,string"`
	User     models.User   `json:"user"`
	Roles    models.IDList `json:"roles"`
	JoinedAt string        `json:"joined_at"`
}

type rolePayload struct {
	ID          int64  `json:"id,string"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Position    int    `json:"position"`
	Permissions int64  `json:"permissions"`
}

func (p rolePayload) role(serverID int64) *models.Role {
	return &models.Role{
		ID:          p.ID,
		ServerID:    serverID,
		Name:        p.Name,
		Color:       p.Color,
		Hoist:       p.Hoist,
		Position:    p.Position,
		Permissions: permissions.Pair{Allow: p.Permissions},
	}
}

// partialUser is the user object of a presence update. Absent fields are
// backfilled from the cached user.
type partialUser struct {
	ID            int64   `json:"id,string"`
	Username      *string `json:"username"`
	Discriminator *string `json:"discriminator"`
	Avatar        *string `json:"avatar"`
}

type presencePayload struct {
	GuildID int64       `json:"guild_id,string"`
	User    partialUser `json:"user"`
	Status  string      `json:"status"`
	GameID  *int64      `json:"game_id"`
}

type messageKey struct {
	ID        int64 `json:"id,string"`
	ChannelID int64 `json:"channel_id,string"`
}

// messageRefs holds the parts of a message payload resolved against the cache.
type messageRefs struct {
	Author   *models.User  `json:"author"`
	Mentions []models.User `json:"mentions"`
}

type banPayload struct {
	GuildID int64       `json:"guild_id,string"`
	User    models.User `json:"user"`
}

type serverDeletePayload struct {
	ID          int64 `json:"id,string"`
	Unavailable bool  `json:"unavailable"`
}

type typingPayload struct {
	UserID    int64 `json:"user_id,string"`
	ChannelID int64 `json:"channel_id,string"`
	Timestamp int64 `json:"timestamp"`
}

type roleEventPayload struct {
	GuildID int64       `json:"guild_id,string"`
	Role    rolePayload `json:"role"`
}

type roleDeletePayload struct {
	GuildID int64 `json:"guild_id,string"`
	RoleID  int64 `json:"role_id,string"`
}

// pick returns the payload value unless it is absent or empty.
func pick(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

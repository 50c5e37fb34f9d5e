package models

import (
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/snowflake"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Person is anything that resolves to an account: a bare User or a Member.
type Person interface {
	Identity() *User
}

type User struct {
	ID            int64  `json:"id,string"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`

	// presence, mutated in place
	Status string `json:"status,omitempty"`
	GameID *int64 `json:"game_id,omitempty"`
}

func (u *User) Identity() *User { return u }

func (u *User) Mention() string {
	return fmt.Sprintf("<@%d>", u.ID)
}

// EqualsStrict compares identity fields only. Presence is ignored.
func (u *User) EqualsStrict(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID &&
		u.Username == other.Username &&
		u.Discriminator == other.Discriminator &&
		u.Avatar == other.Avatar
}

type Member struct {
	User     *User  `json:"user"`
	ServerID int64  `json:"guild_id,string"`
	Roles    IDList `json:"roles"`
	JoinedAt string `json:"joined_at"`
}

func (m *Member) Identity() *User { return m.User }

func (m *Member) HasRole(roleID int64) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

type Role struct {
	ID          int64            `json:"id,string"`
	ServerID    int64            `json:"guild_id,string"`
	Name        string           `json:"name"`
	Color       int              `json:"color"`
	Hoist       bool             `json:"hoist"`
	Position    int              `json:"position"`
	Permissions permissions.Pair `json:"permissions"`
}

type Server struct {
	ID         int64             `json:"id,string"`
	Name       string            `json:"name"`
	Region     string            `json:"region"`
	OwnerID    int64             `json:"owner_id,string"`
	Icon       string            `json:"icon"`
	ChannelIDs []int64           `json:"channels"`
	Members    map[int64]*Member `json:"members"`
	Roles      map[int64]*Role   `json:"roles"`
}

type Channel struct {
	ID        int64  `json:"id,string"`
	ServerID  int64  `json:"guild_id,string"`
	Name      string `json:"name"`
	Topic     string `json:"topic"`
	Type      string `json:"type"`
	Position  int    `json:"position"`
	IsPrivate bool   `json:"is_private"`

	// only set on PM channels
	Recipient *User `json:"recipient,omitempty"`

	Messages []*Message `json:"-"`
}

func (c *Channel) Message(id int64) (*Message, int) {
	for i, msg := range c.Messages {
		if msg.ID == id {
			return msg, i
		}
	}
	return nil, -1
}

type Attachment struct {
	ID       int64  `json:"id,string"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Message holds the wire fields. Author and Mentions are resolved against the
// cache and are not part of the wire encoding.
type Message struct {
	ID              int64             `json:"id,string"`
	ChannelID       int64             `json:"channel_id,string"`
	Content         string            `json:"content"`
	Timestamp       string            `json:"timestamp"`
	EditedTimestamp *string           `json:"edited_timestamp"`
	TTS             bool              `json:"tts"`
	MentionEveryone bool              `json:"mention_everyone"`
	Pinned          bool              `json:"pinned"`
	Nonce           string            `json:"nonce,omitempty"`
	Attachments     []Attachment      `json:"attachments"`
	Embeds          []json.RawMessage `json:"embeds"`

	Author   Person   `json:"-"`
	Mentions []Person `json:"-"`
}

func (m *Message) CreatedAt() time.Time {
	return snowflake.Time(m.ID)
}

func (m *Message) IsMentioned(userID int64) bool {
	for _, mention := range m.Mentions {
		if mention.Identity().ID == userID {
			return true
		}
	}
	return false
}

// IDList decodes the service's list of string ids.
type IDList []int64

func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ids := make(IDList, 0, len(raw))
	for _, value := range raw {
		id, err := strconv.ParseInt(value.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", value, err)
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

func (l IDList) MarshalJSON() ([]byte, error) {
	raw := make([]string, len(l))
	for i, id := range l {
		raw[i] = strconv.FormatInt(id, 10)
	}
	return json.Marshal(raw)
}

type ConfigFile struct {
	Token             string `mapstructure:"token" validate:"required"`
	ApiBase           string `mapstructure:"apiBase" validate:"required,url"`
	GatewayURL        string `mapstructure:"gatewayURL" validate:"omitempty,url"`
	Compress          bool   `mapstructure:"compress"`
	Queue             bool   `mapstructure:"queue"`
	MaxCachedMessages int    `mapstructure:"maxCachedMessages" validate:"gte=1"`
	StatusAddress     string `mapstructure:"statusAddress" validate:"omitempty,hostname_port"`
	LogToFile         bool   `mapstructure:"logToFile"`
	LogLevel          string `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	SnowflakeWorkerID int64  `mapstructure:"snowflakeWorkerID" validate:"gte=0,lte=1023"`
	SelfContained     bool   `mapstructure:"selfContained"`
	RedisAddress      string `mapstructure:"redisAddress" validate:"required_without=SelfContained"`
	ArchiveMessages   bool   `mapstructure:"archiveMessages"`
	DbUser            string `mapstructure:"dbUser"`
	DbPassword        string `mapstructure:"dbPassword"`
	DbAddress         string `mapstructure:"dbAddress"`
	DbPort            string `mapstructure:"dbPort"`
	DbDatabase        string `mapstructure:"dbDatabase"`
}

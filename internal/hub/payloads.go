package hub

import (
	"chatapp-client/internal/models"
	"encoding/json"
	"time"
)

type ReadyPayload struct {
	User    *models.User `json:"user"`
	ReadyAt time.Time    `json:"readyAt"`
}

type DisconnectedPayload struct {
	Err error `json:"-"`
}

type ParseErrorPayload struct {
	Err   error  `json:"-"`
	Frame []byte `json:"frame"`
}

// RawPayload carries an undecoded frame, for Raw and Unknown.
type RawPayload struct {
	Tag   string          `json:"tag"`
	Frame json.RawMessage `json:"frame"`
}

type ServerPayload struct {
	Server *models.Server `json:"server"`
}

type ServerUnavailablePayload struct {
	ServerID int64 `json:"serverID,string"`
}

type ServerModifiedPayload struct {
	Old *models.Server `json:"old"`
	New *models.Server `json:"new"`
}

type ServerDeletedPayload struct {
	ServerID int64          `json:"serverID,string"`
	Server   *models.Server `json:"server"`
}

type BanPayload struct {
	User   *models.User   `json:"user"`
	Server *models.Server `json:"server"`
}

type ChannelPayload struct {
	Channel *models.Channel `json:"channel"`
}

type ChannelModifiedPayload struct {
	Old *models.Channel `json:"old"`
	New *models.Channel `json:"new"`
}

type MemberPayload struct {
	Member *models.Member `json:"member"`
	Server *models.Server `json:"server"`
}

type MemberRemovedPayload struct {
	User   *models.User   `json:"user"`
	Server *models.Server `json:"server"`
}

// MemberModifiedPayload is emitted while Member still holds its old roles.
type MemberModifiedPayload struct {
	Member *models.Member `json:"member"`
	Roles  models.IDList  `json:"roles"`
}

type UserModifiedPayload struct {
	Old *models.User `json:"old"`
	New *models.User `json:"new"`
}

type PresencePayload struct {
	User      *models.User   `json:"user"`
	OldStatus string         `json:"oldStatus"`
	Status    string         `json:"status"`
	Server    *models.Server `json:"server"`
	GameID    *int64         `json:"gameID"`
}

type TypingPayload struct {
	UserID    int64           `json:"userID,string"`
	User      *models.User    `json:"user"`
	Channel   *models.Channel `json:"channel"`
	ChannelID int64           `json:"channelID,string"`
}

type RolePayload struct {
	Server *models.Server `json:"server"`
	Role   *models.Role   `json:"role"`
}

type RoleModifiedPayload struct {
	Server *models.Server `json:"server"`
	Old    *models.Role   `json:"old"`
	New    *models.Role   `json:"new"`
}

type RoleDeletedPayload struct {
	Server *models.Server `json:"server"`
	Role   *models.Role   `json:"role"`
	RoleID int64          `json:"roleID,string"`
}

type MessagePayload struct {
	Message *models.Message `json:"message"`
}

type MessageModifiedPayload struct {
	New *models.Message `json:"new"`
	Old *models.Message `json:"old"`
}

// MessageDeletedPayload has a nil Message when it was not cached, and a nil
// Channel when the channel is unknown too.
type MessageDeletedPayload struct {
	Channel   *models.Channel `json:"channel"`
	Message   *models.Message `json:"message"`
	ChannelID int64           `json:"channelID,string"`
	MessageID int64           `json:"messageID,string"`
}

package synchronizer

import "encoding/json"

// Kind is the closed set of dispatch events the synchronizer understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindReady
	KindMessageCreate
	KindMessageDelete
	KindMessageUpdate
	KindServerCreate
	KindServerUpdate
	KindServerDelete
	KindBanAdd
	KindBanRemove
	KindChannelCreate
	KindChannelUpdate
	KindChannelDelete
	KindMemberAdd
	KindMemberRemove
	KindMemberUpdate
	KindUserUpdate
	KindPresenceUpdate
	KindTypingStart
	KindRoleCreate
	KindRoleDelete
	KindRoleUpdate
)

var kindsByTag = map[string]Kind{
	"READY":               KindReady,
	"MESSAGE_CREATE":      KindMessageCreate,
	"MESSAGE_DELETE":      KindMessageDelete,
	"MESSAGE_UPDATE":      KindMessageUpdate,
	"GUILD_CREATE":        KindServerCreate,
	"GUILD_UPDATE":        KindServerUpdate,
	"GUILD_DELETE":        KindServerDelete,
	"GUILD_BAN_ADD":       KindBanAdd,
	"GUILD_BAN_REMOVE":    KindBanRemove,
	"CHANNEL_CREATE":      KindChannelCreate,
	"CHANNEL_UPDATE":      KindChannelUpdate,
	"CHANNEL_DELETE":      KindChannelDelete,
	"GUILD_MEMBER_ADD":    KindMemberAdd,
	"GUILD_MEMBER_REMOVE": KindMemberRemove,
	"GUILD_MEMBER_UPDATE": KindMemberUpdate,
	"USER_UPDATE":         KindUserUpdate,
	"PRESENCE_UPDATE":     KindPresenceUpdate,
	"TYPING_START":        KindTypingStart,
	"GUILD_ROLE_CREATE":   KindRoleCreate,
	"GUILD_ROLE_DELETE":   KindRoleDelete,
	"GUILD_ROLE_UPDATE":   KindRoleUpdate,
}

func KindOf(tag string) Kind {
	if kind, exists := kindsByTag[tag]; exists {
		return kind
	}
	return KindUnknown
}

func (k Kind) String() string {
	for tag, kind := range kindsByTag {
		if kind == k {
			return tag
		}
	}
	return "UNKNOWN"
}

// Event is one dispatch frame. Frame keeps the whole undecoded frame for
// unknown events.
type Event struct {
	Kind  Kind
	Tag   string
	Data  json.RawMessage
	Frame []byte
}

func NewEvent(tag string, data json.RawMessage, frame []byte) Event {
	return Event{
		Kind:  KindOf(tag),
		Tag:   tag,
		Data:  data,
		Frame: frame,
	}
}

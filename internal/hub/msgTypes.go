package hub

const (
	Ready        = "Ready"
	Disconnected = "Disconnected"
	ParseError   = "ParseError"
	Raw          = "Raw"
	Unknown      = "Unknown"

	ServerCreated     = "ServerCreated"
	ServerUnavailable = "ServerUnavailable"
	ServerModified    = "ServerModified"
	ServerDeleted     = "ServerDeleted"

	UserBanned   = "UserBanned"
	UserUnbanned = "UserUnbanned"

	ChannelCreated  = "ChannelCreated"
	ChannelModified = "ChannelModified"
	ChannelDeleted  = "ChannelDeleted"

	MemberAdded    = "MemberAdded"
	MemberRemoved  = "MemberRemoved"
	MemberModified = "MemberModified"

	UserModified = "UserModified"
	Presence     = "Presence"

	TypingStarted = "TypingStarted"
	TypingStopped = "TypingStopped"

	RoleCreated  = "RoleCreated"
	RoleModified = "RoleModified"
	RoleDeleted  = "RoleDeleted"

	MessageCreated  = "MessageCreated"
	MessageModified = "MessageModified"
	MessageDeleted  = "MessageDeleted"
)

package synchronizer

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/correlation"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recorded struct {
	msgType string
	payload any
}

type recorder struct {
	mutex  sync.Mutex
	events []recorded
}

func (r *recorder) listen(msgType string, payload any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, recorded{msgType, payload})
}

func (r *recorder) all() []recorded {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]recorded(nil), r.events...)
}

func (r *recorder) of(msgType string) []any {
	var payloads []any
	for _, event := range r.all() {
		if event.msgType == msgType {
			payloads = append(payloads, event.payload)
		}
	}
	return payloads
}

func (r *recorder) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = nil
}

type fixture struct {
	sync         *Synchronizer
	cache        *cache.Cache
	correlations *correlation.Correlations
	rec          *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	sugar := zap.NewNop().Sugar()
	c := cache.New(10)
	h := hub.New(sugar, nil, "")
	correlations := correlation.New()
	rec := &recorder{}
	h.SubscribeAll(rec.listen)

	return &fixture{
		sync:         New(c, h, correlations, nil, sugar, opts...),
		cache:        c,
		correlations: correlations,
		rec:          rec,
	}
}

func (f *fixture) dispatch(tag string, data string) {
	f.sync.Dispatch(tag, []byte(data), []byte(`{"t":"`+tag+`","d":`+data+`}`))
}

const readyFrame = `{
	"user": {"id": "1", "username": "me", "discriminator": "0001", "avatar": ""},
	"heartbeat_interval": 41250,
	"guilds": [{
		"id": "100", "name": "server", "region": "eu", "owner_id": "1",
		"roles": [{"id": "100", "name": "@everyone", "permissions": 1024, "position": 0}],
		"members": [
			{"user": {"id": "1", "username": "me", "discriminator": "0001"}, "roles": []},
			{"user": {"id": "2", "username": "alice", "discriminator": "0002"}, "roles": ["100"]}
		],
		"channels": [
			{"id": "200", "name": "general", "type": "text"},
			{"id": "201", "name": "random", "type": "text"}
		],
		"presences": [{"user": {"id": "2"}, "status": "online"}]
	}, {"id": "101", "unavailable": true}],
	"private_channels": [
		{"id": "300", "is_private": true, "recipient": {"id": "3", "username": "bob", "discriminator": "0003"}}
	]
}`

func ready(t *testing.T, opts ...Option) *fixture {
	f := newFixture(t, opts...)
	f.dispatch("READY", readyFrame)
	f.rec.reset()
	return f
}

func TestReadyPopulatesCache(t *testing.T) {
	f := newFixture(t)
	f.dispatch("READY", readyFrame)

	self := f.cache.Self()
	if self == nil || self.ID != 1 {
		t.Fatalf("got self %+v, want user 1", self)
	}
	if cached, _ := f.cache.User(1); cached != self {
		t.Error("self is not the cached user object")
	}

	server, exists := f.cache.Server(100)
	if !exists {
		t.Fatal("server 100 not cached")
	}
	if len(server.ChannelIDs) != 2 || len(server.Members) != 2 || len(server.Roles) != 1 {
		t.Errorf("got %d channels, %d members, %d roles", len(server.ChannelIDs), len(server.Members), len(server.Roles))
	}
	if role, _ := f.cache.Role(100, 100); !role.Permissions.Has("readMessages") {
		t.Error("role permissions were not decoded")
	}
	if alice, _ := f.cache.User(2); alice.Status != "online" {
		t.Errorf("got status %q for alice, want online", alice.Status)
	}

	pm, exists := f.cache.PMChannelWith(3)
	if !exists || pm.ID != 300 {
		t.Fatal("private channel with bob not cached")
	}

	if got := f.rec.of(hub.ServerUnavailable); len(got) != 1 {
		t.Errorf("got %d unavailable notifications, want 1", len(got))
	}
	if _, exists := f.cache.Server(101); exists {
		t.Error("unavailable server was cached")
	}
}

func TestUnknownEventLeavesCacheAlone(t *testing.T) {
	f := ready(t)
	before := f.cache.Stats()

	f.dispatch("VOICE_STATE_UPDATE", `{"user_id": "2"}`)

	events := f.rec.all()
	if len(events) != 1 || events[0].msgType != hub.Unknown {
		t.Fatalf("got %+v, want one Unknown notification", events)
	}
	raw := events[0].payload.(hub.RawPayload)
	if raw.Tag != "VOICE_STATE_UPDATE" || len(raw.Frame) == 0 {
		t.Errorf("got raw payload %+v", raw)
	}
	if f.cache.Stats() != before {
		t.Error("cache changed on unknown event")
	}
}

func TestMalformedPayloadEmitsParseError(t *testing.T) {
	f := ready(t)

	f.dispatch("MESSAGE_CREATE", `{"id": 12, "channel_id": }`)

	events := f.rec.all()
	if len(events) != 1 || events[0].msgType != hub.ParseError {
		t.Fatalf("got %+v, want one ParseError notification", events)
	}
	if len(f.cache.Messages(200)) != 0 {
		t.Error("malformed message was cached")
	}
}

func TestServerCreateNotifiesOnce(t *testing.T) {
	f := ready(t)
	frame := `{"id": "400", "name": "new", "channels": [{"id": "401", "name": "general"}]}`

	f.dispatch("GUILD_CREATE", frame)
	f.dispatch("GUILD_CREATE", frame)

	if got := f.rec.of(hub.ServerCreated); len(got) != 1 {
		t.Fatalf("got %d ServerCreated, want 1", len(got))
	}
	channel, exists := f.cache.Channel(401)
	if !exists || channel.ServerID != 400 {
		t.Error("channel of new server not cached under it")
	}
}

func TestServerCreateResolvesCorrelation(t *testing.T) {
	f := ready(t)

	var resolved *models.Server
	f.correlations.Servers.Register(400, func(server *models.Server) { resolved = server })
	f.dispatch("GUILD_CREATE", `{"id": "400", "name": "new"}`)

	cached, _ := f.cache.Server(400)
	if resolved == nil || resolved != cached {
		t.Error("correlation did not receive the cached server")
	}
	if f.correlations.Servers.Pending(400) {
		t.Error("correlation still pending")
	}
}

func TestServerUpdateAndDelete(t *testing.T) {
	f := ready(t)

	f.dispatch("GUILD_UPDATE", `{"id": "100", "name": "renamed", "owner_id": "2"}`)
	server, _ := f.cache.Server(100)
	if server.Name != "renamed" || len(server.ChannelIDs) != 2 || len(server.Members) != 2 {
		t.Errorf("update lost state: %+v", server)
	}
	modified := f.rec.of(hub.ServerModified)
	if len(modified) != 1 || modified[0].(hub.ServerModifiedPayload).Old.Name != "server" {
		t.Error("ServerModified missing the old snapshot")
	}

	f.dispatch("GUILD_DELETE", `{"id": "100"}`)
	if _, exists := f.cache.Server(100); exists {
		t.Error("server still cached after delete")
	}
	if _, exists := f.cache.Channel(200); exists {
		t.Error("channel of deleted server still cached")
	}
	if got := f.rec.of(hub.ServerDeleted); len(got) != 1 {
		t.Errorf("got %d ServerDeleted, want 1", len(got))
	}
}

func TestBanEventsDoNotTouchChannels(t *testing.T) {
	f := ready(t)
	before := f.cache.Stats()

	f.dispatch("GUILD_BAN_ADD", `{"guild_id": "100", "user": {"id": "2", "username": "alice"}}`)
	f.dispatch("GUILD_BAN_REMOVE", `{"guild_id": "100", "user": {"id": "2", "username": "alice"}}`)

	events := f.rec.all()
	if len(events) != 2 || events[0].msgType != hub.UserBanned || events[1].msgType != hub.UserUnbanned {
		t.Fatalf("got %+v", events)
	}
	if ban := events[0].payload.(hub.BanPayload); ban.Server == nil || ban.User.ID != 2 {
		t.Errorf("got ban payload %+v", ban)
	}
	if f.cache.Stats() != before {
		t.Error("ban changed cached channels")
	}
}

func TestChannelLifecycle(t *testing.T) {
	f := ready(t)

	f.dispatch("CHANNEL_CREATE", `{"id": "202", "guild_id": "100", "name": "memes"}`)
	f.dispatch("CHANNEL_CREATE", `{"id": "202", "guild_id": "100", "name": "memes"}`)
	if got := f.rec.of(hub.ChannelCreated); len(got) != 1 {
		t.Fatalf("got %d ChannelCreated, want 1", len(got))
	}

	f.dispatch("MESSAGE_CREATE", `{"id": "900", "channel_id": "202", "content": "hi", "author": {"id": "2"}}`)
	f.dispatch("CHANNEL_UPDATE", `{"id": "202", "guild_id": "100", "name": "dank-memes"}`)

	channel, _ := f.cache.Channel(202)
	if channel.Name != "dank-memes" || len(channel.Messages) != 1 {
		t.Errorf("got channel %+v", channel)
	}

	f.rec.reset()
	var attachedDuringNotify bool
	f.sync.hub.Subscribe(hub.ChannelDeleted, func(string, any) {
		server, _ := f.cache.Server(100)
		for _, id := range server.ChannelIDs {
			if id == 202 {
				attachedDuringNotify = true
			}
		}
	})
	f.dispatch("CHANNEL_DELETE", `{"id": "202", "guild_id": "100"}`)

	if attachedDuringNotify {
		t.Error("channel was still attached when ChannelDeleted fired")
	}
	if _, exists := f.cache.Channel(202); exists {
		t.Error("channel still cached after delete")
	}
}

func TestPrivateChannelCreate(t *testing.T) {
	f := ready(t)

	f.dispatch("CHANNEL_CREATE", `{"id": "301", "is_private": true, "recipient": {"id": "4", "username": "carol"}}`)

	channel, exists := f.cache.PMChannelWith(4)
	if !exists || channel.ID != 301 {
		t.Fatal("private channel not cached")
	}
	if user, _ := f.cache.User(4); channel.Recipient != user {
		t.Error("recipient is not the cached user")
	}
}

func TestMessageCreateResolvesMembers(t *testing.T) {
	f := ready(t)

	f.dispatch("MESSAGE_CREATE", `{
		"id": "900", "channel_id": "200", "content": "hi <@1>",
		"author": {"id": "2", "username": "alice"},
		"mentions": [{"id": "1", "username": "me"}, {"id": "9", "username": "stranger"}]
	}`)

	msg, exists := f.cache.Message(200, 900)
	if !exists {
		t.Fatal("message not cached")
	}
	if _, isMember := msg.Author.(*models.Member); !isMember {
		t.Errorf("author resolved to %T, want member", msg.Author)
	}
	if len(msg.Mentions) != 2 {
		t.Fatalf("got %d mentions, want 2", len(msg.Mentions))
	}
	if _, isMember := msg.Mentions[0].(*models.Member); !isMember {
		t.Error("first mention should resolve to a member")
	}
	if _, isUser := msg.Mentions[1].(*models.User); !isUser {
		t.Error("non-member mention should resolve to a user")
	}
	if !msg.IsMentioned(1) {
		t.Error("IsMentioned(1) = false")
	}
	if got := f.rec.of(hub.MessageCreated); len(got) != 1 {
		t.Errorf("got %d MessageCreated, want 1", len(got))
	}
}

func TestMessageCreateUnknownChannelDropped(t *testing.T) {
	f := ready(t)

	f.dispatch("MESSAGE_CREATE", `{"id": "900", "channel_id": "777", "content": "hi"}`)

	if len(f.rec.all()) != 0 {
		t.Errorf("got %+v, want no notifications", f.rec.all())
	}
}

func TestMessageUpdateMergesPartial(t *testing.T) {
	f := ready(t)
	f.dispatch("MESSAGE_CREATE", `{
		"id": "900", "channel_id": "200", "content": "hi", "tts": true,
		"author": {"id": "2"}, "mentions": [{"id": "1"}]
	}`)
	old, _ := f.cache.Message(200, 900)

	f.dispatch("MESSAGE_UPDATE", `{"id": "900", "channel_id": "200", "content": "edited", "edited_timestamp": "2016-01-01T00:00:00Z"}`)

	updated, _ := f.cache.Message(200, 900)
	if updated == old {
		t.Fatal("update mutated the message in place")
	}
	if updated.Content != "edited" || !updated.TTS {
		t.Errorf("got %+v, want edited content and kept tts", updated)
	}
	if updated.EditedTimestamp == nil {
		t.Error("edited timestamp not applied")
	}
	if updated.Author != old.Author {
		t.Error("author was not carried over")
	}
	if len(updated.Mentions) != 1 {
		t.Error("mentions were dropped although the payload had none")
	}

	modified := f.rec.of(hub.MessageModified)
	if len(modified) != 1 {
		t.Fatalf("got %d MessageModified, want 1", len(modified))
	}
	payload := modified[0].(hub.MessageModifiedPayload)
	if payload.Old != old || payload.New != updated {
		t.Error("MessageModified carries wrong snapshots")
	}

	f.dispatch("MESSAGE_UPDATE", `{"id": "900", "channel_id": "200", "mentions": []}`)
	if updated, _ := f.cache.Message(200, 900); len(updated.Mentions) != 0 {
		t.Error("explicit empty mentions were not applied")
	}
}

func TestMessageUpdateUncachedIsNoop(t *testing.T) {
	f := ready(t)

	f.dispatch("MESSAGE_UPDATE", `{"id": "901", "channel_id": "200", "content": "edited"}`)

	if len(f.rec.all()) != 0 {
		t.Error("update of uncached message produced a notification")
	}
}

func TestMessageDelete(t *testing.T) {
	f := ready(t)
	f.dispatch("MESSAGE_CREATE", `{"id": "900", "channel_id": "200", "content": "hi"}`)
	f.rec.reset()

	tests := []struct {
		name        string
		frame       string
		wantChannel bool
		wantMessage bool
	}{
		{"Cached", `{"id": "900", "channel_id": "200"}`, true, true},
		{"UncachedMessage", `{"id": "900", "channel_id": "200"}`, true, false},
		{"UnknownChannel", `{"id": "1", "channel_id": "777"}`, false, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f.rec.reset()
			f.dispatch("MESSAGE_DELETE", test.frame)

			deleted := f.rec.of(hub.MessageDeleted)
			if len(deleted) != 1 {
				t.Fatalf("got %d MessageDeleted, want 1", len(deleted))
			}
			payload := deleted[0].(hub.MessageDeletedPayload)
			if (payload.Channel != nil) != test.wantChannel {
				t.Errorf("channel present = %v, want %v", payload.Channel != nil, test.wantChannel)
			}
			if (payload.Message != nil) != test.wantMessage {
				t.Errorf("message present = %v, want %v", payload.Message != nil, test.wantMessage)
			}
		})
	}
}

func TestPresenceUpdate(t *testing.T) {
	f := ready(t)
	alice, _ := f.cache.User(2)

	f.dispatch("PRESENCE_UPDATE", `{"guild_id": "100", "user": {"id": "2"}, "status": "idle", "game_id": 5}`)

	presence := f.rec.of(hub.Presence)
	if len(presence) != 1 {
		t.Fatalf("got %d Presence, want 1", len(presence))
	}
	payload := presence[0].(hub.PresencePayload)
	if payload.OldStatus != "online" || payload.Status != "idle" || payload.Server == nil {
		t.Errorf("got presence payload %+v", payload)
	}
	if cached, _ := f.cache.User(2); cached != alice || alice.Status != "idle" || alice.GameID == nil || *alice.GameID != 5 {
		t.Error("presence was not applied in place")
	}

	f.rec.reset()
	f.dispatch("PRESENCE_UPDATE", `{"guild_id": "100", "user": {"id": "2", "username": "alicia"}, "status": "online"}`)

	if len(f.rec.of(hub.Presence)) != 0 {
		t.Error("profile change reported as presence")
	}
	modified := f.rec.of(hub.UserModified)
	if len(modified) != 1 {
		t.Fatalf("got %d UserModified, want 1", len(modified))
	}
	payload2 := modified[0].(hub.UserModifiedPayload)
	if payload2.Old != alice || payload2.New.Username != "alicia" || payload2.New.Discriminator != "0002" {
		t.Errorf("got %+v", payload2.New)
	}
	member, _ := f.cache.Member(100, 2)
	if member.User.Username != "alicia" {
		t.Error("member does not resolve to the new identity")
	}
}

func TestPresenceForUncachedUser(t *testing.T) {
	f := ready(t)
	f.dispatch("PRESENCE_UPDATE", `{"user": {"id": "55"}, "status": "online"}`)

	if len(f.rec.all()) != 0 {
		t.Error("presence for uncached user produced a notification")
	}
}

func TestUserUpdateOnlyForSelf(t *testing.T) {
	f := ready(t)

	f.dispatch("USER_UPDATE", `{"id": "2", "username": "alice2"}`)
	if len(f.rec.all()) != 0 {
		t.Error("update of another user produced a notification")
	}

	f.dispatch("USER_UPDATE", `{"id": "1", "username": "me2", "discriminator": "0001"}`)
	if self := f.cache.Self(); self.Username != "me2" {
		t.Errorf("got self %q, want me2", self.Username)
	}
	if user, _ := f.cache.User(1); user != f.cache.Self() {
		t.Error("general user cache not updated")
	}
	if got := f.rec.of(hub.UserModified); len(got) != 1 {
		t.Errorf("got %d UserModified, want 1", len(got))
	}
}

func TestMemberEvents(t *testing.T) {
	f := ready(t)

	f.dispatch("GUILD_MEMBER_ADD", `{"guild_id": "100", "user": {"id": "5", "username": "dave"}, "roles": []}`)
	if _, exists := f.cache.Member(100, 5); !exists {
		t.Fatal("member not added")
	}

	var rolesDuringNotify models.IDList
	f.sync.hub.Subscribe(hub.MemberModified, func(_ string, payload any) {
		rolesDuringNotify = append(models.IDList(nil), payload.(hub.MemberModifiedPayload).Member.Roles...)
	})
	f.dispatch("GUILD_MEMBER_UPDATE", `{"guild_id": "100", "user": {"id": "5"}, "roles": ["100"]}`)

	if len(rolesDuringNotify) != 0 {
		t.Errorf("member had roles %v during notification, want old roles", rolesDuringNotify)
	}
	member, _ := f.cache.Member(100, 5)
	if !member.HasRole(100) {
		t.Error("roles not applied after notification")
	}

	f.dispatch("GUILD_MEMBER_REMOVE", `{"guild_id": "100", "user": {"id": "5"}}`)
	if _, exists := f.cache.Member(100, 5); exists {
		t.Error("member still cached after remove")
	}
	if got := f.rec.of(hub.MemberRemoved); len(got) != 1 {
		t.Errorf("got %d MemberRemoved, want 1", len(got))
	}
}

func TestRoleEvents(t *testing.T) {
	f := ready(t)

	f.dispatch("GUILD_ROLE_CREATE", `{"guild_id": "100", "role": {"id": "110", "name": "new role"}}`)
	if got := f.rec.of(hub.RoleCreated); len(got) != 1 {
		t.Fatalf("got %d RoleCreated, want 1", len(got))
	}

	f.dispatch("GUILD_ROLE_UPDATE", `{"guild_id": "100", "role": {"id": "110", "name": "mods", "permissions": 8}}`)
	modified := f.rec.of(hub.RoleModified)
	if len(modified) != 1 {
		t.Fatalf("got %d RoleModified, want 1", len(modified))
	}
	payload := modified[0].(hub.RoleModifiedPayload)
	if payload.Old.Name != "new role" || !payload.New.Permissions.Has("manageRoles") {
		t.Errorf("got role modified %+v", payload)
	}

	f.dispatch("GUILD_ROLE_DELETE", `{"guild_id": "100", "role_id": "110"}`)
	if _, exists := f.cache.Role(100, 110); exists {
		t.Error("role still cached after delete")
	}
	if got := f.rec.of(hub.RoleDeleted); len(got) != 1 || got[0].(hub.RoleDeletedPayload).Role == nil {
		t.Error("RoleDeleted missing the cached role")
	}
}

func TestRoleCreateWithPendingCorrelation(t *testing.T) {
	f := ready(t)

	var patched *models.Role
	f.correlations.Roles.Register(111, func(role *models.Role) { patched = role })
	f.dispatch("GUILD_ROLE_CREATE", `{"guild_id": "100", "role": {"id": "111", "name": "new role"}}`)

	if patched == nil || patched.ID != 111 {
		t.Fatal("continuation did not receive the role")
	}
	if got := f.rec.of(hub.RoleCreated); len(got) != 0 {
		t.Error("correlated role produced a public notification")
	}
	if _, exists := f.cache.Role(100, 111); !exists {
		t.Error("correlated role was not cached")
	}
}

func TestTypingDebounce(t *testing.T) {
	f := ready(t, WithTypingWindow(50*time.Millisecond))

	f.dispatch("TYPING_START", `{"user_id": "2", "channel_id": "200"}`)
	f.dispatch("TYPING_START", `{"user_id": "2", "channel_id": "200"}`)

	if got := f.rec.of(hub.TypingStarted); len(got) != 1 {
		t.Fatalf("got %d TypingStarted, want 1", len(got))
	}
	started := f.rec.of(hub.TypingStarted)[0].(hub.TypingPayload)
	if started.User == nil || started.Channel == nil {
		t.Error("typing payload did not resolve user and channel")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.rec.of(hub.TypingStopped)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := f.rec.of(hub.TypingStopped); len(got) != 1 {
		t.Errorf("got %d TypingStopped, want 1", len(got))
	}
}

func TestMergeHelpers(t *testing.T) {
	f := ready(t)

	msg, err := f.sync.MergeMessage([]byte(`{"id": "950", "channel_id": "200", "content": "sent", "author": {"id": "1"}}`))
	if err != nil {
		t.Fatalf("MergeMessage: %v", err)
	}
	if cached, _ := f.cache.Message(200, 950); cached != msg {
		t.Error("sent message not cached")
	}

	edited, err := f.sync.MergeEditedMessage([]byte(`{"id": "950", "channel_id": "200", "content": "fixed"}`), msg)
	if err != nil {
		t.Fatalf("MergeEditedMessage: %v", err)
	}
	if edited.Author != msg.Author || edited.Content != "fixed" {
		t.Errorf("got edited %+v", edited)
	}

	if _, err := f.sync.MergeMessage([]byte(`{"id": "951", "channel_id": "777"}`)); err == nil {
		t.Error("MergeMessage into unknown channel succeeded")
	}

	logs, err := f.sync.MergeMessageLog([]byte(`[{"id": "1", "channel_id": "200"}, {"id": "2", "channel_id": "200"}]`))
	if err != nil || len(logs) != 2 {
		t.Errorf("MergeMessageLog returned %d messages, err %v", len(logs), err)
	}

	role, err := f.sync.MergeRole(100, []byte(`{"id": "120", "name": "new role", "permissions": 0}`))
	if err != nil || role.ServerID != 100 {
		t.Errorf("MergeRole returned %+v, %v", role, err)
	}

	channel, err := f.sync.MergeChannel([]byte(`{"id": "302", "is_private": true, "recipient": {"id": "2"}}`))
	if err != nil || !channel.IsPrivate {
		t.Errorf("MergeChannel returned %+v, %v", channel, err)
	}
}

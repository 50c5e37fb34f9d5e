package synchronizer

import (
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"encoding/json"
)

func (s *Synchronizer) handleMemberAdd(data json.RawMessage) error {
	var p memberPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Debugf("Member %d joined unknown server %d", p.User.ID, p.GuildID)
		return nil
	}

	member, _ := s.cache.AddMember(&models.Member{
		User:     s.cache.AddUser(&p.User),
		ServerID: server.ID,
		Roles:    p.Roles,
		JoinedAt: p.JoinedAt,
	})
	s.hub.Emit(hub.MemberAdded, hub.MemberPayload{Member: member, Server: server})
	return nil
}

func (s *Synchronizer) handleMemberRemove(data json.RawMessage) error {
	var p memberPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Debugf("Member %d left unknown server %d", p.User.ID, p.GuildID)
		return nil
	}

	user := s.cache.AddUser(&p.User)
	s.cache.RemoveMember(server.ID, user.ID)
	s.hub.Emit(hub.MemberRemoved, hub.MemberRemovedPayload{User: user, Server: server})
	return nil
}

// handleMemberUpdate notifies while the member still holds its old roles,
// then overwrites them.
func (s *Synchronizer) handleMemberUpdate(data json.RawMessage) error {
	var p memberPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Debugf("Member %d updated in unknown server %d", p.User.ID, p.GuildID)
		return nil
	}

	user := s.cache.AddUser(&p.User)
	member, exists := s.cache.Member(server.ID, user.ID)
	if !exists {
		member, _ = s.cache.AddMember(&models.Member{
			User:     user,
			ServerID: server.ID,
			Roles:    models.IDList{},
			JoinedAt: p.JoinedAt,
		})
	}

	s.hub.Emit(hub.MemberModified, hub.MemberModifiedPayload{Member: member, Roles: p.Roles})
	s.cache.SetMemberRoles(server.ID, user.ID, p.Roles)
	return nil
}

func (s *Synchronizer) handleUserUpdate(data json.RawMessage) error {
	var updated models.User
	if err := decode(data, &updated); err != nil {
		return err
	}

	self := s.cache.Self()
	if self == nil || self.ID != updated.ID {
		s.sugar.Debugf("Ignoring update for user %d", updated.ID)
		return nil
	}

	updated.Status = self.Status
	updated.GameID = self.GameID

	s.hub.Emit(hub.UserModified, hub.UserModifiedPayload{Old: self, New: &updated})
	if _, exists := s.cache.User(updated.ID); exists {
		s.cache.ReplaceUser(&updated)
	}
	s.cache.SetSelf(&updated)
	return nil
}

// handlePresenceUpdate tells a status change from a profile change. A payload
// whose identity fields match the cached user only moves presence.
func (s *Synchronizer) handlePresenceUpdate(data json.RawMessage) error {
	var p presencePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	cached, exists := s.cache.User(p.User.ID)
	if !exists {
		s.sugar.Debugf("Presence for uncached user %d", p.User.ID)
		return nil
	}

	candidate := &models.User{
		ID:            cached.ID,
		Username:      pick(p.User.Username, cached.Username),
		Discriminator: pick(p.User.Discriminator, cached.Discriminator),
		Avatar:        pick(p.User.Avatar, cached.Avatar),
	}

	if candidate.EqualsStrict(cached) {
		server, _ := s.cache.Server(p.GuildID)
		s.hub.Emit(hub.Presence, hub.PresencePayload{
			User:      cached,
			OldStatus: cached.Status,
			Status:    p.Status,
			Server:    server,
			GameID:    p.GameID,
		})
		s.cache.SetPresence(cached.ID, p.Status, p.GameID)
		return nil
	}

	candidate.Status = p.Status
	candidate.GameID = p.GameID
	s.cache.ReplaceUser(candidate)
	s.hub.Emit(hub.UserModified, hub.UserModifiedPayload{Old: cached, New: candidate})
	return nil
}

func (s *Synchronizer) handleTypingStart(data json.RawMessage) error {
	var p typingPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	s.typing.Start(p.UserID, p.ChannelID)
	return nil
}

func (s *Synchronizer) typingStarted(userID int64, channelID int64) {
	s.hub.Emit(hub.TypingStarted, s.typingPayload(userID, channelID))
}

func (s *Synchronizer) typingStopped(userID int64, channelID int64) {
	s.hub.Emit(hub.TypingStopped, s.typingPayload(userID, channelID))
}

func (s *Synchronizer) typingPayload(userID int64, channelID int64) hub.TypingPayload {
	user, _ := s.cache.User(userID)
	channel, _ := s.cache.Channel(channelID)
	return hub.TypingPayload{
		UserID:    userID,
		User:      user,
		Channel:   channel,
		ChannelID: channelID,
	}
}

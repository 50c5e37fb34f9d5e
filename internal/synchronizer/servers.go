package synchronizer

import (
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"encoding/json"
)

func (s *Synchronizer) handleReady(data json.RawMessage) error {
	var p readyPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	self := s.cache.AddUser(&p.User)
	s.cache.SetSelf(self)

	for _, guild := range p.Guilds {
		s.addServer(guild)
	}
	for _, private := range p.PrivateChannels {
		s.addPMChannel(private)
	}

	stats := s.cache.Stats()
	s.sugar.Debugf("Cached %d servers, %d channels, %d private channels, %d users",
		stats.Servers, stats.Channels, stats.PMChannels, stats.Users)
	return nil
}

// addServer materializes a server with its roles, members, channels and
// presences. It returns the cached server and whether it was newly created.
func (s *Synchronizer) addServer(p serverPayload) (*models.Server, bool) {
	if p.Unavailable {
		s.hub.Emit(hub.ServerUnavailable, hub.ServerUnavailablePayload{ServerID: p.ID})
		return nil, false
	}

	if cached, exists := s.cache.Server(p.ID); exists {
		s.applyPresences(p.Presences)
		return cached, false
	}

	server := s.cache.AddServer(p.server())

	for _, role := range p.Roles {
		s.cache.PutRole(role.role(server.ID))
	}
	for _, m := range p.Members {
		user := m.User
		s.cache.AddMember(&models.Member{
			User:     s.cache.AddUser(&user),
			ServerID: server.ID,
			Roles:    m.Roles,
			JoinedAt: m.JoinedAt,
		})
	}
	for _, c := range p.Channels {
		channel := c.channel()
		channel.ServerID = server.ID
		s.cache.AddChannel(channel)
	}
	s.applyPresences(p.Presences)

	return server, true
}

func (s *Synchronizer) applyPresences(presences []presencePayload) {
	for _, presence := range presences {
		s.cache.SetPresence(presence.User.ID, presence.Status, presence.GameID)
	}
}

func (s *Synchronizer) handleServerCreate(data json.RawMessage) error {
	var p serverPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, created := s.addServer(p)
	if server == nil {
		return nil
	}

	s.correlations.Servers.Resolve(server.ID, server)
	if created {
		s.hub.Emit(hub.ServerCreated, hub.ServerPayload{Server: server})
	}
	return nil
}

func (s *Synchronizer) handleServerUpdate(data json.RawMessage) error {
	var p serverPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	updated := p.server()
	old := s.cache.ReplaceServer(updated)
	if old == nil {
		s.sugar.Debugf("Server %d updated but isn't cached", p.ID)
		return nil
	}

	s.hub.Emit(hub.ServerModified, hub.ServerModifiedPayload{Old: old, New: updated})
	return nil
}

func (s *Synchronizer) handleServerDelete(data json.RawMessage) error {
	var p serverDeletePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, _ := s.cache.RemoveServer(p.ID)
	s.hub.Emit(hub.ServerDeleted, hub.ServerDeletedPayload{ServerID: p.ID, Server: server})
	return nil
}

// handleBan serves both ban events. Neither touches channel state.
func (s *Synchronizer) handleBan(data json.RawMessage, msgType string) error {
	var p banPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	user := s.cache.AddUser(&p.User)
	server, _ := s.cache.Server(p.GuildID)
	s.hub.Emit(msgType, hub.BanPayload{User: user, Server: server})
	return nil
}

func (s *Synchronizer) handleRoleCreate(data json.RawMessage) error {
	var p roleEventPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Warnf("Role %d created in unknown server %d", p.Role.ID, p.GuildID)
		return nil
	}

	role := p.Role.role(server.ID)
	s.cache.PutRole(role)

	if s.correlations.Roles.Resolve(role.ID, role) {
		return nil
	}
	s.hub.Emit(hub.RoleCreated, hub.RolePayload{Server: server, Role: role})
	return nil
}

func (s *Synchronizer) handleRoleUpdate(data json.RawMessage) error {
	var p roleEventPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Warnf("Role %d updated in unknown server %d", p.Role.ID, p.GuildID)
		return nil
	}

	role := p.Role.role(server.ID)
	old, _ := s.cache.PutRole(role)
	s.hub.Emit(hub.RoleModified, hub.RoleModifiedPayload{Server: server, Old: old, New: role})
	return nil
}

func (s *Synchronizer) handleRoleDelete(data json.RawMessage) error {
	var p roleDeletePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	server, exists := s.cache.Server(p.GuildID)
	if !exists {
		s.sugar.Warnf("Role %d deleted in unknown server %d", p.RoleID, p.GuildID)
		return nil
	}

	role, _ := s.cache.Role(server.ID, p.RoleID)
	s.hub.Emit(hub.RoleDeleted, hub.RoleDeletedPayload{Server: server, Role: role, RoleID: p.RoleID})
	s.cache.RemoveRole(server.ID, p.RoleID)
	return nil
}

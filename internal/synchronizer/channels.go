package synchronizer

import (
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"encoding/json"
)

func (s *Synchronizer) addPMChannel(p channelPayload) *models.Channel {
	channel := p.channel()
	channel.IsPrivate = true
	channel.ServerID = 0
	if p.Recipient != nil {
		recipient := *p.Recipient
		channel.Recipient = s.cache.AddUser(&recipient)
	}
	return s.cache.AddPMChannel(channel)
}

// addChannel caches a channel of either kind and reports whether it was new.
func (s *Synchronizer) addChannel(p channelPayload) (*models.Channel, bool) {
	if cached, exists := s.cache.Channel(p.ID); exists {
		return cached, false
	}
	if p.IsPrivate {
		return s.addPMChannel(p), true
	}
	return s.cache.AddChannel(p.channel()), true
}

func (s *Synchronizer) handleChannelCreate(data json.RawMessage) error {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	channel, created := s.addChannel(p)
	if !created {
		return nil
	}
	s.hub.Emit(hub.ChannelCreated, hub.ChannelPayload{Channel: channel})
	return nil
}

func (s *Synchronizer) handleChannelUpdate(data json.RawMessage) error {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	old, exists := s.cache.Channel(p.ID)
	if !exists {
		s.sugar.Debugf("Channel %d updated but isn't cached", p.ID)
		return nil
	}

	updated := p.channel()
	updated.Messages = old.Messages
	if old.IsPrivate {
		updated.IsPrivate = true
		updated.ServerID = 0
		updated.Recipient = old.Recipient
	}

	s.hub.Emit(hub.ChannelModified, hub.ChannelModifiedPayload{Old: old, New: updated})
	s.cache.ReplaceChannel(updated)
	return nil
}

func (s *Synchronizer) handleChannelDelete(data json.RawMessage) error {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	channel, exists := s.cache.Channel(p.ID)
	if !exists {
		s.sugar.Debugf("Channel %d deleted but isn't cached", p.ID)
		return nil
	}

	s.cache.DetachChannel(channel.ID)
	s.hub.Emit(hub.ChannelDeleted, hub.ChannelPayload{Channel: channel})
	s.cache.RemoveChannel(channel.ID)
	return nil
}

package synchronizer

import (
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownChannel = errors.New("channel is not cached")

// buildMessage decodes a full message payload and resolves its author and
// mentions against the channel's server.
func (s *Synchronizer) buildMessage(data json.RawMessage) (*models.Message, *models.Channel, error) {
	var msg models.Message
	if err := decode(data, &msg); err != nil {
		return nil, nil, err
	}
	var refs messageRefs
	if err := decode(data, &refs); err != nil {
		return nil, nil, err
	}

	channel, exists := s.cache.Channel(msg.ChannelID)
	if !exists {
		return &msg, nil, fmt.Errorf("message %d in channel %d: %w", msg.ID, msg.ChannelID, ErrUnknownChannel)
	}

	if refs.Author != nil {
		author := *refs.Author
		msg.Author = s.cache.Resolve(channel.ServerID, s.cache.AddUser(&author))
	}
	msg.Mentions = s.resolveMentions(channel, refs.Mentions)
	return &msg, channel, nil
}

func (s *Synchronizer) resolveMentions(channel *models.Channel, users []models.User) []models.Person {
	mentions := make([]models.Person, 0, len(users))
	for _, u := range users {
		user := u
		mentions = append(mentions, s.cache.Resolve(channel.ServerID, s.cache.AddUser(&user)))
	}
	return mentions
}

func (s *Synchronizer) handleMessageCreate(data json.RawMessage) error {
	msg, _, err := s.buildMessage(data)
	if errors.Is(err, ErrUnknownChannel) {
		s.sugar.Debugf("Dropping message %d: %v", msg.ID, err)
		return nil
	}
	if err != nil {
		return err
	}

	s.cache.AppendMessage(msg)
	s.hub.Emit(hub.MessageCreated, hub.MessagePayload{Message: msg})
	return nil
}

func (s *Synchronizer) handleMessageDelete(data json.RawMessage) error {
	var key messageKey
	if err := decode(data, &key); err != nil {
		return err
	}

	channel, _ := s.cache.Channel(key.ChannelID)
	msg, _ := s.cache.Message(key.ChannelID, key.ID)

	s.hub.Emit(hub.MessageDeleted, hub.MessageDeletedPayload{
		Channel:   channel,
		Message:   msg,
		ChannelID: key.ChannelID,
		MessageID: key.ID,
	})
	s.cache.RemoveMessage(key.ChannelID, key.ID)
	return nil
}

// handleMessageUpdate overlays a partial payload on the cached message. The
// author is carried over, and mentions are re-resolved only when the payload
// has them.
func (s *Synchronizer) handleMessageUpdate(data json.RawMessage) error {
	var key messageKey
	if err := decode(data, &key); err != nil {
		return err
	}

	old, exists := s.cache.Message(key.ChannelID, key.ID)
	if !exists {
		s.sugar.Debugf("Message %d updated but isn't cached", key.ID)
		return nil
	}
	channel, _ := s.cache.Channel(key.ChannelID)

	var partial map[string]json.RawMessage
	if err := decode(data, &partial); err != nil {
		return err
	}
	updated, err := overlay(old, partial)
	if err != nil {
		return err
	}

	updated.Author = old.Author
	updated.Mentions = old.Mentions
	if raw, present := partial["mentions"]; present {
		var users []models.User
		if err := decode(raw, &users); err != nil {
			return err
		}
		updated.Mentions = s.resolveMentions(channel, users)
	}

	s.hub.Emit(hub.MessageModified, hub.MessageModifiedPayload{New: updated, Old: old})
	s.cache.ReplaceMessage(updated)
	return nil
}

// overlay copies the wire fields of old and replaces every key the partial
// payload carries.
func overlay(old *models.Message, partial map[string]json.RawMessage) (*models.Message, error) {
	oldBytes, err := json.Marshal(old)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(oldBytes, &merged); err != nil {
		return nil, err
	}
	for key, value := range partial {
		if key == "author" || key == "mentions" {
			continue
		}
		merged[key] = value
	}

	mergedBytes, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var msg models.Message
	if err := decode(mergedBytes, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MergeMessage caches a message returned by a send request.
func (s *Synchronizer) MergeMessage(body []byte) (*models.Message, error) {
	msg, _, err := s.buildMessage(body)
	if err != nil {
		return nil, err
	}
	s.cache.AppendMessage(msg)
	return msg, nil
}

// MergeEditedMessage replaces old with the message returned by an edit
// request, keeping the old author and mentions.
func (s *Synchronizer) MergeEditedMessage(body []byte, old *models.Message) (*models.Message, error) {
	msg, _, err := s.buildMessage(body)
	if err != nil && !errors.Is(err, ErrUnknownChannel) {
		return nil, err
	}
	msg.Author = old.Author
	msg.Mentions = old.Mentions
	s.cache.ReplaceMessage(msg)
	return msg, nil
}

// MergeMessageLog resolves a page of channel history without caching it.
func (s *Synchronizer) MergeMessageLog(body []byte) ([]*models.Message, error) {
	var raws []json.RawMessage
	if err := decode(body, &raws); err != nil {
		return nil, err
	}

	msgs := make([]*models.Message, 0, len(raws))
	for _, raw := range raws {
		msg, _, err := s.buildMessage(raw)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MergeChannel caches a channel returned by a create request.
func (s *Synchronizer) MergeChannel(body []byte) (*models.Channel, error) {
	var p channelPayload
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	channel, _ := s.addChannel(p)
	return channel, nil
}

// MergeRole caches a role returned by a role request.
func (s *Synchronizer) MergeRole(serverID int64, body []byte) (*models.Role, error) {
	var p rolePayload
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	role := p.role(serverID)
	if _, ok := s.cache.PutRole(role); !ok {
		return nil, fmt.Errorf("role %d for server %d: server is not cached", role.ID, serverID)
	}
	return role, nil
}

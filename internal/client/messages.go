package client

import (
	"chatapp-client/internal/fileHandlers"
	"chatapp-client/internal/models"
	"chatapp-client/internal/queue"
	"chatapp-client/internal/rest"
	"chatapp-client/internal/snowflake"
	"chatapp-client/internal/validator"
	"context"
	"fmt"
	"regexp"
)

var mentionRegex = regexp.MustCompile(`<@!?(\d+)>`)

// mentionIDs collects the user ids mentioned in content, once each.
func mentionIDs(content string) []string {
	ids := []string{}
	seen := make(map[string]bool)
	for _, match := range mentionRegex.FindAllStringSubmatch(content, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			ids = append(ids, match[1])
		}
	}
	return ids
}

func (c *Client) messageTask(channelID int64, content string, tts bool) (queue.Task[*models.Message], error) {
	if err := validator.Content(content); err != nil {
		return nil, err
	}
	args := rest.MessageArgs{
		Content:  content,
		Mentions: mentionIDs(content),
		Nonce:    snowflake.Nonce(),
		TTS:      tts,
	}
	return func(ctx context.Context) (*models.Message, error) {
		body, err := c.rest.SendMessage(ctx, channelID, args)
		if err != nil {
			return nil, err
		}
		return c.sync.MergeMessage(body)
	}, nil
}

// SendMessage posts content to the destination and waits for the cached
// result. Writes to one channel keep their order when queueing is enabled.
func (c *Client) SendMessage(ctx context.Context, destination int64, content string, tts bool) (*models.Message, error) {
	channelID, err := c.ResolveDestination(ctx, destination)
	if err != nil {
		return nil, err
	}
	task, err := c.messageTask(channelID, content, tts)
	if err != nil {
		return nil, err
	}
	return c.messages.Do(ctx, channelID, "send_message", task)
}

// QueueMessage is SendMessage without waiting. done receives the result.
func (c *Client) QueueMessage(ctx context.Context, destination int64, content string, tts bool, done queue.Continuation[*models.Message]) {
	channelID, err := c.ResolveDestination(ctx, destination)
	if err != nil {
		done(nil, err)
		return
	}
	task, err := c.messageTask(channelID, content, tts)
	if err != nil {
		done(nil, err)
		return
	}
	c.messages.Submit(ctx, channelID, "send_message", task, done)
}

// UpdateMessage replaces the content of one of our messages.
func (c *Client) UpdateMessage(ctx context.Context, msg *models.Message, content string) (*models.Message, error) {
	if err := validator.Content(content); err != nil {
		return nil, err
	}

	args := rest.MessageArgs{
		Content:  content,
		Mentions: mentionIDs(content),
	}
	return c.messages.Do(ctx, msg.ChannelID, "update_message", func(ctx context.Context) (*models.Message, error) {
		body, err := c.rest.EditMessage(ctx, msg.ChannelID, msg.ID, args)
		if err != nil {
			return nil, err
		}
		return c.sync.MergeEditedMessage(body, msg)
	})
}

// SendFile uploads the file at path to the destination.
func (c *Client) SendFile(ctx context.Context, destination int64, path string) (*models.Message, error) {
	channelID, err := c.ResolveDestination(ctx, destination)
	if err != nil {
		return nil, err
	}
	attachment, err := fileHandlers.ReadAttachment(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read attachment: %w", err)
	}

	return c.messages.Do(ctx, channelID, "send_file", func(ctx context.Context) (*models.Message, error) {
		body, err := c.rest.SendFile(ctx, channelID, attachment.Name, attachment.ContentType, attachment.Data)
		if err != nil {
			return nil, err
		}
		return c.sync.MergeMessage(body)
	})
}

// GetChannelLogs fetches up to limit messages before the given id, newest
// first. A zero before starts at the latest message.
func (c *Client) GetChannelLogs(ctx context.Context, channelID int64, limit int, before int64) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	body, err := c.rest.GetMessages(ctx, channelID, limit, before)
	if err != nil {
		return nil, err
	}
	return c.sync.MergeMessageLog(body)
}

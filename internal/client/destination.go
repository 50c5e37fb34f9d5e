package client

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownDestination = errors.New("unknown destination")

// ResolveDestination maps an id to the channel a message for it goes to. A
// channel id is used as is, a server id means the server's default channel,
// which shares its id, and a user id means the private channel with that
// user, opened when none is cached.
func (c *Client) ResolveDestination(ctx context.Context, id int64) (int64, error) {
	if _, exists := c.Cache.Channel(id); exists {
		return id, nil
	}
	if _, exists := c.Cache.Server(id); exists {
		return id, nil
	}
	if _, exists := c.Cache.User(id); exists {
		if pm, exists := c.Cache.PMChannelWith(id); exists {
			return pm.ID, nil
		}
		channelID, err := c.StartPM(ctx, id)
		if err != nil {
			return 0, err
		}
		return channelID, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownDestination, id)
}

// StartPM opens a private channel with the user and caches it.
func (c *Client) StartPM(ctx context.Context, userID int64) (int64, error) {
	self := c.Cache.Self()
	if self == nil {
		return 0, fmt.Errorf("couldn't open private channel: not ready")
	}

	body, err := c.rest.StartPM(ctx, self.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("couldn't open private channel: %w", err)
	}
	channel, err := c.sync.MergeChannel(body)
	if err != nil {
		return 0, err
	}
	return channel.ID, nil
}

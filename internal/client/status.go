package client

import (
	"chatapp-client/internal/gateway"
	"fmt"
	"time"
)

const (
	StatusOnline = "online"
	StatusIdle   = "idle"
)

// SetStatus announces the account as online or idle, keeping the current game.
func (c *Client) SetStatus(status string) error {
	c.mutex.Lock()
	switch status {
	case StatusOnline:
		c.idle = nil
	case StatusIdle:
		since := time.Now().UnixMilli()
		c.idle = &since
	default:
		c.mutex.Unlock()
		return fmt.Errorf("unknown status %q", status)
	}
	c.mutex.Unlock()

	return c.sendStatus()
}

// SetActivity sets or, with nil, clears the game being played.
func (c *Client) SetActivity(gameID *int64) error {
	c.mutex.Lock()
	c.gameID = gameID
	c.mutex.Unlock()

	return c.sendStatus()
}

func (c *Client) sendStatus() error {
	c.mutex.Lock()
	session, idle, gameID := c.session, c.idle, c.gameID
	c.mutex.Unlock()

	if session == nil {
		return gateway.ErrNotConnected
	}
	return session.SendStatus(idle, gameID)
}

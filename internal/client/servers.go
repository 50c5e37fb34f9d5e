package client

import (
	"chatapp-client/internal/models"
	"chatapp-client/internal/rest"
	"chatapp-client/internal/validator"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CreateServer returns once the server's creation event has been applied.
// The request's response only carries the new id.
func (c *Client) CreateServer(ctx context.Context, name string, region string) (*models.Server, error) {
	if err := validator.Name(name); err != nil {
		return nil, err
	}

	body, err := c.rest.CreateServer(ctx, rest.ServerArgs{Name: name, Region: region})
	if err != nil {
		return nil, fmt.Errorf("couldn't create server: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("invalid create server response: %w", err)
	}
	serverID, err := strconv.ParseInt(created.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid server id %q: %w", created.ID, err)
	}
	return c.awaitServer(ctx, serverID)
}

// JoinServer accepts an invite, given as a code or as a link ending in one,
// and returns once the joined server is cached.
func (c *Client) JoinServer(ctx context.Context, invite string) (*models.Server, error) {
	code := invite
	if i := strings.LastIndex(invite, "/"); i >= 0 {
		code = invite[i+1:]
	}
	if err := validator.InviteCode(code); err != nil {
		return nil, err
	}

	body, err := c.rest.JoinServer(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("couldn't join server: %w", err)
	}

	var joined struct {
		Guild struct {
			ID string `json:"id"`
		} `json:"guild"`
	}
	if err := json.Unmarshal(body, &joined); err != nil {
		return nil, fmt.Errorf("invalid invite response: %w", err)
	}
	serverID, err := strconv.ParseInt(joined.Guild.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid server id %q: %w", joined.Guild.ID, err)
	}
	return c.awaitServer(ctx, serverID)
}

// awaitServer waits for the server to be announced on the stream. Nothing
// bounds the wait except ctx.
func (c *Client) awaitServer(ctx context.Context, serverID int64) (*models.Server, error) {
	arrived := make(chan *models.Server, 1)
	c.correlations.Servers.Register(serverID, func(server *models.Server) {
		arrived <- server
	})
	c.metrics.SetPendingCorrelations(c.PendingCorrelations())
	defer func() {
		c.metrics.SetPendingCorrelations(c.PendingCorrelations())
	}()

	// the event may have been applied before the registration
	if server, exists := c.Cache.Server(serverID); exists && c.correlations.Servers.Expire(serverID) {
		return server, nil
	}

	select {
	case server := <-arrived:
		return server, nil
	case <-ctx.Done():
		c.correlations.Servers.Expire(serverID)
		return nil, ctx.Err()
	}
}

package client

import (
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/rest"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

type RoleData struct {
	Name        string
	Color       int
	Hoist       bool
	Permissions map[string]bool
}

func (d RoleData) args() rest.RoleArgs {
	return rest.RoleArgs{
		Name:        d.Name,
		Color:       d.Color,
		Hoist:       d.Hoist,
		Permissions: permissions.Encode(d.Permissions).Allow,
	}
}

func (d RoleData) matches(role *models.Role) bool {
	return role.Name == d.Name &&
		role.Color == d.Color &&
		role.Permissions.Allow == permissions.Encode(d.Permissions).Allow
}

type roleResult struct {
	role *models.Role
	err  error
}

// CreateRole creates a blank role and patches it with data once the blank
// role's creation event arrives. The blank role is never announced on the hub.
func (c *Client) CreateRole(ctx context.Context, serverID int64, data RoleData) (*models.Role, error) {
	if _, exists := c.Cache.Server(serverID); !exists {
		return nil, fmt.Errorf("couldn't create role: server %d is not cached", serverID)
	}

	body, err := c.rest.CreateRole(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("couldn't create role: %w", err)
	}

	var blank struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &blank); err != nil {
		return nil, fmt.Errorf("invalid create role response: %w", err)
	}
	roleID, err := strconv.ParseInt(blank.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid role id %q: %w", blank.ID, err)
	}

	done := make(chan roleResult, 1)
	patch := func() {
		role, err := c.updateRole(ctx, serverID, roleID, data.args())
		done <- roleResult{role, err}
	}

	c.correlations.Roles.Register(roleID, func(*models.Role) {
		go patch()
	})
	c.metrics.SetPendingCorrelations(c.PendingCorrelations())
	defer func() {
		c.metrics.SetPendingCorrelations(c.PendingCorrelations())
	}()

	if _, exists := c.Cache.Role(serverID, roleID); exists && c.correlations.Roles.Expire(roleID) {
		go patch()
	}

	select {
	case result := <-done:
		return result.role, result.err
	case <-ctx.Done():
		c.correlations.Roles.Expire(roleID)
		return nil, ctx.Err()
	}
}

// UpdateRole patches a cached role. Fields left zero in data keep the role's
// current value, and nil Permissions keeps the current allow mask.
func (c *Client) UpdateRole(ctx context.Context, role *models.Role, data RoleData) (*models.Role, error) {
	args := data.args()
	if args.Name == "" {
		args.Name = role.Name
	}
	if args.Color == 0 {
		args.Color = role.Color
	}
	if !args.Hoist {
		args.Hoist = role.Hoist
	}
	if data.Permissions == nil {
		args.Permissions = role.Permissions.Allow
	}
	return c.updateRole(ctx, role.ServerID, role.ID, args)
}

func (c *Client) updateRole(ctx context.Context, serverID int64, roleID int64, args rest.RoleArgs) (*models.Role, error) {
	body, err := c.rest.UpdateRole(ctx, serverID, roleID, args)
	if err != nil {
		return nil, fmt.Errorf("couldn't update role: %w", err)
	}
	return c.sync.MergeRole(serverID, body)
}

// CreateRoleIfNotExists returns an existing role with the same name, color
// and permissions, or creates one.
func (c *Client) CreateRoleIfNotExists(ctx context.Context, serverID int64, data RoleData) (*models.Role, error) {
	for _, role := range c.Cache.Roles(serverID) {
		if data.matches(role) {
			return role, nil
		}
	}
	return c.CreateRole(ctx, serverID, data)
}

package client

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/correlation"
	"chatapp-client/internal/gateway"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/metrics"
	"chatapp-client/internal/models"
	"chatapp-client/internal/queue"
	"chatapp-client/internal/rest"
	"chatapp-client/internal/synchronizer"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const gatewayKey = "gateway_url"
const gatewayTTL = 24 * time.Hour

var ErrAlreadyConnected = errors.New("client is already connected")

// Options carries the collaborators that callers may share or replace. Nil
// fields get local defaults.
type Options struct {
	Hub     *hub.Hub
	Store   *keyValue.Store
	Metrics *metrics.Metrics
	Dialer  gateway.Dialer
}

// Client mirrors the remote service in Cache and performs writes against it.
type Client struct {
	Cache *cache.Cache
	Hub   *hub.Hub

	cfg          *models.ConfigFile
	correlations *correlation.Correlations
	sync         *synchronizer.Synchronizer
	messages     *queue.Queue[*models.Message]
	rest         *rest.Client
	store        *keyValue.Store
	metrics      *metrics.Metrics
	dial         gateway.Dialer
	sugar        *zap.SugaredLogger

	mutex   sync.Mutex
	session *gateway.Session
	gameID  *int64
	idle    *int64
}

func New(cfg *models.ConfigFile, opts Options, sugar *zap.SugaredLogger) *Client {
	if opts.Hub == nil {
		opts.Hub = hub.New(sugar, nil, "")
	}
	if opts.Store == nil {
		opts.Store = keyValue.New(sugar, nil, "")
	}
	if opts.Dialer == nil {
		opts.Dialer = gateway.DialWebsocket
	}

	c := &Client{
		Cache:        cache.New(cfg.MaxCachedMessages),
		Hub:          opts.Hub,
		cfg:          cfg,
		correlations: correlation.New(),
		rest:         rest.New(cfg.ApiBase, cfg.Token, sugar),
		store:        opts.Store,
		metrics:      opts.Metrics,
		dial:         opts.Dialer,
		sugar:        sugar,
	}
	// notifications point into the cache and may be encoded while it changes
	c.Hub.Guard(c.Cache.RLocker())
	c.sync = synchronizer.New(c.Cache, c.Hub, c.correlations, c.metrics, sugar)
	c.messages = queue.New[*models.Message](cfg.Queue, sugar)
	c.messages.Observe(c.metrics.Action)
	return c
}

// Connect opens a new gateway session unless one is still alive. It returns
// once the identify frame is sent; Ready is announced through the hub.
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	if c.session != nil && c.session.State() != gateway.Disconnected {
		c.mutex.Unlock()
		return ErrAlreadyConnected
	}
	session := gateway.New(c.dial, c.sync, c.Hub, c.Cache, c.metrics, c.sugar)
	c.session = session
	c.mutex.Unlock()

	gatewayURL, err := c.gatewayURL(ctx)
	if err != nil {
		c.mutex.Lock()
		c.session = nil
		c.mutex.Unlock()
		return fmt.Errorf("couldn't get gateway url: %w", err)
	}

	if err := session.Open(ctx, gatewayURL, c.cfg.Token, c.cfg.Compress); err != nil {
		// a stale cached url must not be reused
		if delErr := c.forgetGatewayURL(ctx); delErr != nil {
			c.sugar.Warn(delErr)
		}
		return err
	}
	return nil
}

func (c *Client) gatewayURL(ctx context.Context) (string, error) {
	if c.cfg.GatewayURL != "" {
		return c.cfg.GatewayURL, nil
	}

	cached, err := c.store.Get(ctx, gatewayKey)
	if err != nil {
		c.sugar.Warnf("Couldn't read cached gateway url: %v", err)
	} else if cached != "" {
		return cached, nil
	}

	gatewayURL, err := c.rest.Gateway(ctx)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, gatewayKey, gatewayURL, gatewayTTL); err != nil {
		c.sugar.Warnf("Couldn't cache gateway url: %v", err)
	}
	return gatewayURL, nil
}

func (c *Client) forgetGatewayURL(ctx context.Context) error {
	if c.cfg.GatewayURL != "" {
		return nil
	}
	_, err := c.store.GetDel(ctx, gatewayKey)
	return err
}

func (c *Client) currentSession() *gateway.Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.session
}

func (c *Client) Close() error {
	session := c.currentSession()
	if session == nil {
		return nil
	}
	return session.Close()
}

func (c *Client) State() gateway.State {
	session := c.currentSession()
	if session == nil {
		return gateway.Idle
	}
	return session.State()
}

func (c *Client) Uptime() time.Duration {
	session := c.currentSession()
	if session == nil {
		return 0
	}
	return session.Uptime()
}

func (c *Client) Self() *models.User {
	return c.Cache.Self()
}

// Messages returns every cached message across all channels.
func (c *Client) Messages() []*models.Message {
	return c.Cache.AllMessages()
}

func (c *Client) IsTyping(userID int64) bool {
	return c.sync.Typing().IsTyping(userID)
}

func (c *Client) PendingCorrelations() int {
	return c.correlations.Servers.Len() + c.correlations.Roles.Len()
}

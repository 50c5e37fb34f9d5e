package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

// Error is a non-2xx response. Body is the trimmed response text.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is a thin transport for the request/response API. Every call returns
// the raw response body.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
	sugar      *zap.SugaredLogger
}

func New(apiBase string, token string, sugar *zap.SugaredLogger) *Client {
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		token:      token,
		httpClient: defaultClient(),
		sugar:      sugar,
	}
}

func (c *Client) do(ctx context.Context, method string, path string, args any) ([]byte, error) {
	var body io.Reader
	if args != nil {
		requestBodyBytes, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if args != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path)
}

func (c *Client) send(req *http.Request, path string) ([]byte, error) {
	req.Header.Set("Authorization", c.token)

	c.sugar.Debugf("%s %s", req.Method, path)
	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, &Error{
			Method:     req.Method,
			Path:       path,
			StatusCode: r.StatusCode,
			Body:       strings.TrimSpace(string(responseBodyBytes)),
		}
	}
	return responseBodyBytes, nil
}

// Gateway returns the websocket URL of the event stream.
func (c *Client) Gateway(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/gateway", nil)
	if err != nil {
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", fmt.Errorf("gateway response has no url")
	}
	return result.URL, nil
}

type MessageArgs struct {
	Content  string   `json:"content"`
	Mentions []string `json:"mentions"`
	Nonce    string   `json:"nonce,omitempty"`
	TTS      bool     `json:"tts"`
}

func (c *Client) SendMessage(ctx context.Context, channelID int64, args MessageArgs) ([]byte, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages", channelID), args)
}

func (c *Client) EditMessage(ctx context.Context, channelID int64, messageID int64, args MessageArgs) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID), args)
}

// SendFile uploads one attachment as the multipart field "file".
func (c *Client) SendFile(ctx context.Context, channelID int64, name string, contentType string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, name)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/channels/%d/messages", channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(req, path)
}

// GetMessages fetches up to limit messages, newest first. A zero before
// starts at the latest message.
func (c *Client) GetMessages(ctx context.Context, channelID int64, limit int, before int64) ([]byte, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if before != 0 {
		query.Set("before", strconv.FormatInt(before, 10))
	}
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%d/messages?%s", channelID, query.Encode()), nil)
}

type ServerArgs struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

func (c *Client) CreateServer(ctx context.Context, args ServerArgs) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/guilds", args)
}

func (c *Client) JoinServer(ctx context.Context, code string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/invite/"+url.PathEscape(code), nil)
}

func (c *Client) CreateRole(ctx context.Context, serverID int64) ([]byte, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%d/roles", serverID), nil)
}

type RoleArgs struct {
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Permissions int64  `json:"permissions"`
}

func (c *Client) UpdateRole(ctx context.Context, serverID int64, roleID int64, args RoleArgs) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/guilds/%d/roles/%d", serverID, roleID), args)
}

func (c *Client) StartPM(ctx context.Context, selfID int64, recipientID int64) ([]byte, error) {
	args := struct {
		RecipientID string `json:"recipient_id"`
	}{strconv.FormatInt(recipientID, 10)}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/channels", selfID), args)
}

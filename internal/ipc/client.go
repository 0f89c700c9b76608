package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/platform"
	"github.com/troia/halo/internal/runtimepath"
)

const (
	DefaultDialTimeout    = 500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
)

// ErrDaemonUnreachable is returned when no daemon accepts the connection.
var ErrDaemonUnreachable = errors.New("daemon unreachable")

// Client handles IPC communication with the daemon. Each call opens its own
// connection.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	timeout     time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; Do surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithPath(socketPath)
}

func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath:  socketPath,
		dialTimeout: DefaultDialTimeout,
		timeout:     DefaultRequestTimeout,
	}
}

// SetTimeouts overrides the dial and whole-request timeouts. Zero values
// keep the current setting.
func (c *Client) SetTimeouts(dial, request time.Duration) {
	if dial > 0 {
		c.dialTimeout = dial
	}
	if request > 0 {
		c.timeout = request
	}
}

func (c *Client) SocketPath() string { return c.socketPath }

// Do sends one request and decodes the response data into out (which may be
// nil). ERROR responses are returned as *RemoteError.
func (c *Client) Do(ctx context.Context, cmd CommandType, payload any, out any) (*Response, error) {
	req := &Request{ID: uuid.NewString(), Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	if c.socketPath == "" {
		return nil, fmt.Errorf("%w: no socket path", ErrDaemonUnreachable)
	}
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (is the daemon running?)", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		kind := resp.Kind
		if kind == "" {
			kind = KindInternal
		}
		return &resp, &RemoteError{Kind: kind, Message: resp.Error}
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return &resp, fmt.Errorf("failed to parse %s data: %w", cmd, err)
		}
	}
	return &resp, nil
}

// Show opens the menu at anchor, or at the pointer when anchor is nil.
func (c *Client) Show(ctx context.Context, anchor *platform.Point) (*VisibilityData, error) {
	var data VisibilityData
	if _, err := c.Do(ctx, CommandShow, ShowPayload{Anchor: anchor}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Hide(ctx context.Context) (*VisibilityData, error) {
	var data VisibilityData
	if _, err := c.Do(ctx, CommandHide, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Toggle shows the menu at the pointer when hidden and hides it otherwise.
func (c *Client) Toggle(ctx context.Context) (*VisibilityData, error) {
	var data VisibilityData
	if _, err := c.Do(ctx, CommandToggle, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Run asks the daemon to raise or launch req.
func (c *Client) Run(ctx context.Context, req engine.Request) (*engine.Outcome, error) {
	var out engine.Outcome
	if _, err := c.Do(ctx, CommandRun, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Select(ctx context.Context, dir config.Direction) (*SelectData, error) {
	var data SelectData
	if _, err := c.Do(ctx, CommandSelect, DirectionPayload{Direction: dir}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Close(ctx context.Context, dir config.Direction) (*CloseData, error) {
	var data CloseData
	if _, err := c.Do(ctx, CommandClose, DirectionPayload{Direction: dir}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Slots(ctx context.Context) (*SlotsData, error) {
	var data SlotsData
	if _, err := c.Do(ctx, CommandSlots, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus(ctx context.Context) (*StatusData, error) {
	var data StatusData
	if _, err := c.Do(ctx, CommandStatus, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Reload makes the daemon re-read its configuration file now.
func (c *Client) Reload(ctx context.Context) (*ReloadData, error) {
	var data ReloadData
	if _, err := c.Do(ctx, CommandReload, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Rebuild makes the daemon rescan installed desktop entries.
func (c *Client) Rebuild(ctx context.Context) (*RebuildData, error) {
	var data RebuildData
	if _, err := c.Do(ctx, CommandRebuild, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetStatus(ctx)
	return err
}

package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandShow    CommandType = "SHOW"
	CommandHide    CommandType = "HIDE"
	CommandToggle  CommandType = "TOGGLE"
	CommandRun     CommandType = "RUN"
	CommandSelect  CommandType = "SELECT"
	CommandClose   CommandType = "CLOSE"
	CommandSlots   CommandType = "SLOTS"
	CommandStatus  CommandType = "STATUS"
	CommandReload  CommandType = "RELOAD"
	CommandRebuild CommandType = "REBUILD"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// ErrorKind classifies an ERROR response so clients can react without
// parsing messages.
type ErrorKind string

const (
	KindConfigParse           ErrorKind = "config_parse"
	KindConfigValidation      ErrorKind = "config_validation"
	KindUnresolvedTarget      ErrorKind = "unresolved_target"
	KindCompositorUnreachable ErrorKind = "compositor_unreachable"
	KindNotFound              ErrorKind = "not_found"
	KindBadRequest            ErrorKind = "bad_request"
	KindInternal              ErrorKind = "internal"
)

// ErrBadRequest marks malformed requests and unknown commands.
var ErrBadRequest = errors.New("bad request")

// Request represents an IPC request from client to server
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client. Version is
// the configuration version the request observed.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status"`
	Version uint64          `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    ErrorKind       `json:"kind,omitempty"`
}

// ShowPayload positions the menu. Without an anchor the daemon asks the
// compositor for the pointer position.
type ShowPayload struct {
	Anchor *platform.Point `json:"anchor,omitempty"`
}

// DirectionPayload addresses a slot for SELECT and CLOSE.
type DirectionPayload struct {
	Direction config.Direction `json:"direction"`
}

// VisibilityData is returned by SHOW and HIDE.
type VisibilityData struct {
	Visible bool            `json:"visible"`
	Anchor  *platform.Point `json:"anchor,omitempty"`
	// Changed is false when the request found the menu already in the
	// requested state.
	Changed bool `json:"changed"`
}

// SelectData is returned by SELECT. Setup slots report the written config
// path instead of an outcome.
type SelectData struct {
	Direction  config.Direction `json:"direction"`
	Outcome    *engine.Outcome  `json:"outcome,omitempty"`
	Setup      bool             `json:"setup,omitempty"`
	Created    bool             `json:"created,omitempty"`
	ConfigPath string           `json:"config_path,omitempty"`
}

// CloseData is returned by CLOSE.
type CloseData struct {
	Direction config.Direction `json:"direction"`
	Window    platform.Window  `json:"window"`
}

// SlotInfo describes one configured slot for front ends.
type SlotInfo struct {
	Direction config.Direction `json:"direction"`
	App       string           `json:"app"`
	Class     string           `json:"class,omitempty"`
	Exec      string           `json:"exec,omitempty"`
	Icon      string           `json:"icon,omitempty"`
	Setup     bool             `json:"setup,omitempty"`
	Running   bool             `json:"running"`
	// Error is set when the slot's target could not be resolved.
	Error string `json:"error,omitempty"`
}

type SlotsData struct {
	Slots []SlotInfo `json:"slots"`
}

// StatusData represents the data returned by STATUS
type StatusData struct {
	Version         uint64          `json:"version"`
	Visible         bool            `json:"visible"`
	Anchor          *platform.Point `json:"anchor,omitempty"`
	UptimeSeconds   int64           `json:"uptime_seconds"`
	ConfigPath      string          `json:"config_path"`
	Setup           bool            `json:"setup"`
	Slots           int             `json:"slots"`
	Backend         string          `json:"backend"`
	LastConfigError string          `json:"last_config_error,omitempty"`
	DaemonRunning   bool            `json:"daemon_running"`
}

type ReloadData struct {
	Version uint64 `json:"version"`
	Slots   int    `json:"slots"`
	Setup   bool   `json:"setup"`
}

type RebuildData struct {
	Entries int `json:"entries"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response classified by KindOf.
func NewErrorResponse(err error) *Response {
	return &Response{
		Status: StatusError,
		Error:  err.Error(),
		Kind:   KindOf(err),
	}
}

// KindOf maps an error onto its wire classification.
func KindOf(err error) ErrorKind {
	var parseErr *config.ParseError
	var validationErr *config.ValidationError
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		return remote.Kind
	case errors.As(err, &parseErr):
		return KindConfigParse
	case errors.As(err, &validationErr):
		return KindConfigValidation
	case errors.Is(err, engine.ErrUnresolvedTarget):
		return KindUnresolvedTarget
	case errors.Is(err, platform.ErrCompositorUnreachable):
		return KindCompositorUnreachable
	case errors.Is(err, engine.ErrNoWindow), errors.Is(err, desktop.ErrNotFound), errors.Is(err, config.ErrNoSlot):
		return KindNotFound
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	default:
		return KindInternal
	}
}

// RemoteError is an ERROR response surfaced on the client side. It matches
// the local sentinel for its kind under errors.Is.
type RemoteError struct {
	Kind    ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("daemon error: %s", e.Message)
}

func (e *RemoteError) Is(target error) bool {
	switch e.Kind {
	case KindUnresolvedTarget:
		return target == engine.ErrUnresolvedTarget
	case KindCompositorUnreachable:
		return target == platform.ErrCompositorUnreachable
	case KindNotFound:
		return target == engine.ErrNoWindow || target == desktop.ErrNotFound || target == config.ErrNoSlot
	case KindBadRequest:
		return target == ErrBadRequest
	}
	return false
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: failed to parse request: %v", ErrBadRequest, err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("%w: missing command", ErrBadRequest)
	}
	return &req, nil
}

// DecodePayload unmarshals a request payload, treating a missing payload as
// empty.
func DecodePayload(req *Request, out any) error {
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Payload, out); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", ErrBadRequest, req.Command, err)
	}
	return nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Package discovery implements the client side of the metadata
// discovery protocol: JSON-RPC 2.0 over HTTP POST with a session
// handshake. The client negotiates a protocol version once, then
// invokes server-side tools to identify libraries and analyze files.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

const (
	jsonrpcVersion = "2.0"

	// protocolVersion is the version proposed during the handshake.
	// The server may answer with an older one; whatever it accepts is
	// echoed back on every subsequent request.
	protocolVersion = "2025-06-18"

	clientName    = "depscout"
	clientVersion = "0.1.0"
)

// Tool names exposed by the discovery service.
const (
	toolDiscoverLibrary = "discover-library-info"
	toolAnalyzeFile     = "analyze-file"
)

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
)

// Client speaks the discovery protocol against a single endpoint.
// The handshake runs lazily on the first tool call and is guarded by a
// mutex so concurrent first calls perform exactly one handshake. The
// negotiated protocol version and session id are write-once until the
// client resets after a server-side "not initialized" signal.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *log.Logger

	// initMu serializes the handshake; mu guards the session fields,
	// which post reads on every request.
	initMu sync.Mutex

	mu        sync.Mutex
	state     state
	sessionID string
	protocol  string
}

// NewClient creates a discovery client for the given endpoint URL.
// A nil logger falls back to the default logger.
func NewClient(endpoint string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// DiscoverLibrary asks the service to identify a library. The query's
// name should carry "name@version" form when a version is known. A nil
// report with nil error means the service had no answer.
func (c *Client) DiscoverLibrary(ctx context.Context, query Query) (*Report, error) {
	args := map[string]any{"name": query.Name}
	if query.Ecosystem != "" {
		args["ecosystem"] = query.Ecosystem
	}

	result, err := c.callTool(ctx, toolDiscoverLibrary, args)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	structured, err := structuredPayload(result)
	if err != nil {
		return nil, err
	}
	if structured == nil {
		return nil, nil
	}

	var report Report
	if err := remarshal(structured, &report); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeProtocol, err, "malformed discovery report")
	}
	if report.Query.Name == "" {
		report.Query = query
	}
	return &report, nil
}

// AnalyzeFile submits file content for analysis. Unlike library
// discovery, the result must carry a structured object payload.
func (c *Client) AnalyzeFile(ctx context.Context, args map[string]any) (map[string]any, error) {
	result, err := c.callTool(ctx, toolAnalyzeFile, args)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeProtocol, "unexpected structured content in analyze-file response")
	}
	return structured, nil
}

// callTool invokes a server-side tool, running the handshake first if
// needed. A "not initialized" error from the server resets the session
// and retries the call exactly once.
func (c *Client) callTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	params := map[string]any{"name": tool, "arguments": args}
	result, err := c.sendRequest(ctx, "tools/call", params)
	if err != nil {
		if !isNotInitialized(err) {
			return nil, err
		}
		c.reset()
		if err := c.ensureInitialized(ctx); err != nil {
			return nil, err
		}
		result, err = c.sendRequest(ctx, "tools/call", params)
		if err != nil {
			return nil, err
		}
	}

	if len(result) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(result, &m); err != nil {
		return nil, nil
	}
	return m, nil
}

// ensureInitialized runs the handshake unless the session is already
// established.
func (c *Client) ensureInitialized(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.currentState() == stateReady {
		return nil
	}
	c.setState(stateInitializing)

	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": clientName, "version": clientVersion},
	}
	result, err := c.sendRequest(ctx, "initialize", params)
	if err != nil {
		c.setState(stateUninitialized)
		return err
	}

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := json.Unmarshal(result, &init); err != nil || init.ProtocolVersion == "" {
		c.setState(stateUninitialized)
		return apperrors.New(apperrors.ErrCodeProtocol, "discovery server did not provide a protocol version")
	}
	c.mu.Lock()
	c.protocol = init.ProtocolVersion
	c.state = stateReady
	c.mu.Unlock()

	if err := c.sendNotification(ctx, "notifications/initialized"); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeProtocol, err, "initialized notification failed")
	}
	return nil
}

func (c *Client) currentState() state {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s state) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// reset drops the session so the next call re-runs the handshake.
func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateUninitialized
	c.sessionID = ""
	c.protocol = ""
}

func (c *Client) sendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	msg := map[string]any{
		"jsonrpc": jsonrpcVersion,
		"id":      id,
		"method":  method,
		"params":  params,
	}
	responses, err := c.post(ctx, msg, true)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeProtocol, "no response from discovery server")
	}

	for _, resp := range responses {
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			text := resp.Error.Message
			if text == "" {
				text = "discovery server returned error"
			}
			return nil, apperrors.New(apperrors.ErrCodeProtocol, "%s", text)
		}
		return resp.Result, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeProtocol, "missing response for request %s", id)
}

func (c *Client) sendNotification(ctx context.Context, method string) error {
	msg := map[string]any{"jsonrpc": jsonrpcVersion, "method": method}
	_, err := c.post(ctx, msg, false)
	return err
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// post sends one JSON-RPC message. The server may answer with a single
// object or a batch; a batch is returned as-is for the caller to match
// by id. When expectResponse is false, a 202 or empty body is success.
func (c *Client) post(ctx context.Context, msg any, expectResponse bool) ([]rpcResponse, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "marshal discovery request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "build discovery request")
	}
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Content-Type", "application/json")

	c.mu.Lock()
	if c.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", c.sessionID)
	}
	if c.protocol != "" {
		req.Header.Set("MCP-Protocol-Version", c.protocol)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "failed to contact discovery server at %s", c.endpoint)
	}
	defer resp.Body.Close()

	c.logger.Debug("discovery request", "endpoint", c.endpoint, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.New(apperrors.ErrCodeProtocol, "discovery server responded with %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	if !expectResponse || resp.StatusCode == http.StatusAccepted {
		return nil, nil
	}

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "read discovery response")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var batch []rpcResponse
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeProtocol, err, "discovery server returned invalid JSON")
		}
		return batch, nil
	}
	var single rpcResponse
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeProtocol, err, "discovery server returned invalid JSON")
	}
	return []rpcResponse{single}, nil
}

// isNotInitialized reports whether the server rejected a call because
// it considers the session uninitialized.
func isNotInitialized(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not initialized")
}

// structuredPayload extracts the useful object from a tool result:
// structuredContent if present, else data, else the raw result. A list
// payload yields its first element, an empty list nothing at all.
func structuredPayload(result map[string]any) (any, error) {
	var payload any = result
	if v, ok := result["structuredContent"]; ok && v != nil {
		payload = v
	} else if v, ok := result["data"]; ok && v != nil {
		payload = v
	}

	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		payload = v[0]
	case map[string]any:
	default:
		return nil, apperrors.New(apperrors.ErrCodeProtocol, "unexpected structured content from discovery server")
	}
	if _, ok := payload.(map[string]any); !ok {
		return nil, apperrors.New(apperrors.ErrCodeProtocol, "unexpected structured content from discovery server")
	}
	return payload, nil
}

// remarshal converts a decoded JSON value into a typed struct.
func remarshal(src any, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

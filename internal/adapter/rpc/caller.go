package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/pkg/apperrors"
)

const defaultTimeout = 10 * time.Second

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// JSONRPCResponse defines the basic structure for a JSON-RPC response.
type JSONRPCResponse struct {
	ID      interface{}     `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure for a JSON-RPC error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// Caller sends JSON-RPC requests over HTTP(S) with fasthttp or over WS(S)
// with gorilla/websocket, picking the transport from the URL scheme.
type Caller struct {
	client  *fasthttp.Client
	timeout time.Duration
	nextID  atomic.Uint64
	logger  *zap.Logger
}

// NewCaller creates a caller whose requests are bounded by timeout when the
// context carries no deadline of its own.
func NewCaller(timeout time.Duration, logger *zap.Logger) *Caller {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Caller{
		// Per-request bounds come from DoTimeout so a longer context deadline can apply.
		client:  &fasthttp.Client{},
		timeout: timeout,
		logger:  logger.Named("JSONRPCCaller"),
	}
}

// Call invokes method on url and decodes the result into result, which may be nil.
// A JSON-RPC error is returned as *JSONRPCError wrapped in ErrExternalServiceFailure.
func (c *Caller) Call(ctx context.Context, url, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(JSONRPCRequest{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal %s request: %v", apperrors.ErrInternal, method, err)
	}

	var body []byte
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://"):
		body, err = c.doWS(ctx, url, payload)
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		body, err = c.doHTTP(ctx, url, payload)
	default:
		return fmt.Errorf("%w: unsupported protocol in URL %s", apperrors.ErrInvalidInput, endpoint(url))
	}
	if err != nil {
		return err
	}

	raw, err := c.decodeResponse(endpoint(url), method, body)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: rpc %s returned malformed %s result: %v",
			apperrors.ErrExternalServiceFailure, endpoint(url), method, err,
		)
	}
	return nil
}

// endpoint reduces url to scheme and host. Providers put API keys in the path
// or query, so only this form goes into errors and logs.
func endpoint(url string) string {
	u, err := neturl.Parse(url)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host
}

// effectiveTimeout is the time left until the context deadline, or the
// caller timeout when the context has none.
func (c *Caller) effectiveTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return c.timeout
}

func (c *Caller) doHTTP(ctx context.Context, url string, payload []byte) ([]byte, error) {
	ep := endpoint(url)
	timeout := c.effectiveTimeout(ctx)
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: deadline already passed for %s", apperrors.ErrTimeout, ep)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			c.logger.Debug("HTTP RPC request timed out", zap.String("endpoint", ep), zap.Duration("timeout", timeout))
			return nil, fmt.Errorf("%w: http request to %s timed out after %v: %v",
				apperrors.ErrTimeout, ep, timeout, err,
			)
		}
		c.logger.Debug("HTTP RPC request failed", zap.String("endpoint", ep), zap.Error(err))
		return nil, fmt.Errorf("%w: http request to %s failed: %v",
			apperrors.ErrExternalServiceFailure, ep, err,
		)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("HTTP RPC returned non-OK status",
			zap.String("endpoint", ep), zap.Int("statusCode", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: rpc %s returned non-OK http status: %d",
			apperrors.ErrExternalServiceFailure, ep, resp.StatusCode(),
		)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (c *Caller) doWS(ctx context.Context, url string, payload []byte) ([]byte, error) {
	ep := endpoint(url)
	timeout := c.effectiveTimeout(ctx)
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: deadline already passed for %s", apperrors.ErrTimeout, ep)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		c.logger.Debug("WSS dial failed", zap.String("endpoint", ep), zap.Error(err))
		return nil, c.wsError(ctx, "dial to", ep, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.logger.Debug("WSS write message failed", zap.String("endpoint", ep), zap.Error(err))
		return nil, c.wsError(ctx, "write to", ep, err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.logger.Debug("WSS read message failed", zap.String("endpoint", ep), zap.Error(err))
		return nil, c.wsError(ctx, "read from", ep, err)
	}
	return message, nil
}

func (c *Caller) wsError(ctx context.Context, op, host string, err error) error {
	if ctxErr := context.Cause(ctx); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: wss %s %s context timed out: %v", apperrors.ErrTimeout, op, host, ctxErr)
		}
		return fmt.Errorf("%w: wss %s %s context error: %v", apperrors.ErrExternalServiceFailure, op, host, ctxErr)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: wss %s %s timed out: %v", apperrors.ErrTimeout, op, host, err)
	}
	return fmt.Errorf("%w: wss %s %s failed: %v", apperrors.ErrExternalServiceFailure, op, host, err)
}

// decodeResponse checks the envelope and returns the raw result.
func (c *Caller) decodeResponse(host, method string, body []byte) (json.RawMessage, error) {
	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		c.logger.Debug("RPC returned invalid JSON",
			zap.String("endpoint", host), zap.ByteString("body", body), zap.Error(err),
		)
		return nil, fmt.Errorf("%w: rpc %s returned invalid JSON response: %v",
			apperrors.ErrExternalServiceFailure, host, err,
		)
	}

	if rpcResp.Error != nil {
		c.logger.Debug("RPC returned JSON-RPC error",
			zap.String("endpoint", host),
			zap.String("method", method),
			zap.Int("errorCode", rpcResp.Error.Code),
			zap.String("errorMessage", rpcResp.Error.Message),
		)
		return nil, fmt.Errorf("%w: %s on %s: %w",
			apperrors.ErrExternalServiceFailure, method, host, rpcResp.Error,
		)
	}

	if rpcResp.Jsonrpc != "2.0" || rpcResp.Result == nil {
		c.logger.Debug("RPC returned invalid JSON-RPC structure",
			zap.String("endpoint", host), zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("%w: rpc %s returned invalid JSON-RPC structure",
			apperrors.ErrExternalServiceFailure, host,
		)
	}

	return rpcResp.Result, nil
}

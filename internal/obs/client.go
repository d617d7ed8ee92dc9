package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("not connected to obs")
	ErrAuthFailed   = errors.New("obs authentication failed")
)

// RequestError is a request OBS answered with result=false.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("obs request %s failed with code %d", e.RequestType, e.Code)
	}

	return fmt.Sprintf("obs request %s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
}

// Client is an obs-websocket v5 client. It is safe for concurrent use.
type Client struct {
	log    logrus.FieldLogger
	cfg    Config
	dialer *websocket.Dialer

	mu        sync.RWMutex
	conn      *connection
	onConnect []func(ctx context.Context)
}

// New creates a new obs-websocket client. Connect or Run must be called
// before requests succeed.
func New(log logrus.FieldLogger, cfg Config) *Client {
	return &Client{
		log: log.WithField("component", "obs"),
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.RequestTimeout,
		},
	}
}

// OnConnect registers fn to run after every successful handshake.
func (c *Client) OnConnect(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onConnect = append(c.onConnect, fn)
}

// Connected reports whether a session with OBS is established.
func (c *Client) Connected() bool {
	return c.current() != nil
}

// Connect dials OBS and completes the Hello/Identify handshake.
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.cfg.Address}

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err := c.handshake(ws); err != nil {
		_ = ws.Close()

		return err
	}

	conn := newConnection(ws)

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.close()
	}

	c.conn = conn
	hooks := slices.Clone(c.onConnect)
	c.mu.Unlock()

	go c.readLoop(conn)

	c.log.WithField("address", c.cfg.Address).Info("Connected to OBS")

	for _, fn := range hooks {
		fn(ctx)
	}

	return nil
}

// Close drops the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.close()
}

// Run keeps the client connected until ctx is cancelled, reconnecting
// every reconnect_interval after a failure or disconnect.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.Connect(ctx); err != nil {
			if errors.Is(err, ErrAuthFailed) {
				c.log.WithError(err).Error("OBS rejected the configured password")
			} else {
				c.log.WithError(err).Warn("Failed to connect to OBS")
			}
		} else if conn := c.current(); conn != nil {
			select {
			case <-ctx.Done():
				_ = c.Close()

				return
			case <-conn.done:
				c.log.Warn("Lost connection to OBS")
			}
		}

		select {
		case <-ctx.Done():
			_ = c.Close()

			return
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// Request sends a request and waits for its response data.
func (c *Client) Request(ctx context.Context, requestType string, data any) (json.RawMessage, error) {
	conn := c.current()
	if conn == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	id := uuid.NewString()

	ch := conn.register(id)
	defer conn.unregister(id)

	if err := conn.write(opRequest, request{
		RequestType: requestType,
		RequestID:   id,
		RequestData: data,
	}); err != nil {
		return nil, fmt.Errorf("send %s: %w", requestType, err)
	}

	select {
	case resp := <-ch:
		if !resp.RequestStatus.Result {
			return nil, &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}

		return resp.ResponseData, nil
	case <-conn.done:
		return nil, ErrNotConnected
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", requestType, ctx.Err())
	}
}

// SetText replaces the text of a text input.
func (c *Client) SetText(ctx context.Context, input, text string) error {
	_, err := c.Request(ctx, "SetInputSettings", map[string]any{
		"inputName":     input,
		"inputSettings": map[string]string{"text": text},
		"overlay":       true,
	})

	return err
}

// RefreshBrowser reloads a browser source, bypassing its cache.
func (c *Client) RefreshBrowser(ctx context.Context, input string) error {
	_, err := c.Request(ctx, "PressInputPropertiesButton", map[string]string{
		"inputName":    input,
		"propertyName": "refreshnocache",
	})

	return err
}

// ListInputs returns the inputs whose unversioned kind is one of kinds.
// No kinds returns every input.
func (c *Client) ListInputs(ctx context.Context, kinds ...string) ([]Input, error) {
	data, err := c.Request(ctx, "GetInputList", nil)
	if err != nil {
		return nil, err
	}

	var list inputList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode input list: %w", err)
	}

	inputs := make([]Input, 0, len(list.Inputs))

	for _, in := range list.Inputs {
		if len(kinds) == 0 || slices.Contains(kinds, in.UnversionedKind) || slices.Contains(kinds, in.Kind) {
			inputs = append(inputs, in)
		}
	}

	return inputs, nil
}

func (c *Client) current() *connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn
}

func (c *Client) handshake(ws *websocket.Conn) error {
	_ = ws.SetReadDeadline(time.Now().Add(c.cfg.RequestTimeout))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	var h hello
	if err := readOp(ws, opHello, &h); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}

	ident := identify{RPCVersion: rpcVersion}

	if h.Authentication != nil {
		if c.cfg.Password == "" {
			return fmt.Errorf("%w: server requires a password", ErrAuthFailed)
		}

		ident.Authentication = authResponse(c.cfg.Password, h.Authentication.Salt, h.Authentication.Challenge)
	}

	if err := writeOp(ws, opIdentify, ident); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	var done identified
	if err := readOp(ws, opIdentified, &done); err != nil {
		if websocket.IsCloseError(err, closeAuthenticationFailed) {
			return ErrAuthFailed
		}

		return fmt.Errorf("read identified: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"obs_websocket_version": h.ObsWebSocketVersion,
		"rpc_version":           done.NegotiatedRPCVersion,
	}).Debug("OBS handshake complete")

	return nil
}

func (c *Client) readLoop(conn *connection) {
	defer conn.close()

	for {
		var msg message
		if err := conn.ws.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			c.log.WithError(err).Debug("OBS read loop ended")

			return
		}

		switch msg.Op {
		case opRequestResponse:
			var resp requestResponse
			if err := json.Unmarshal(msg.Data, &resp); err != nil {
				c.log.WithError(err).Warn("Failed to decode OBS request response")

				continue
			}

			conn.deliver(resp)
		case opEvent:
			// No event subscriptions are requested.
		default:
			c.log.WithField("op", msg.Op).Debug("Ignoring OBS message")
		}
	}
}

// connection is one identified websocket session.
type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending map[string]chan requestResponse
}

func newConnection(ws *websocket.Conn) *connection {
	return &connection{
		ws:      ws,
		done:    make(chan struct{}),
		pending: make(map[string]chan requestResponse),
	}
}

func (c *connection) write(op int, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return writeOp(c.ws, op, v)
}

func (c *connection) register(id string) <-chan requestResponse {
	ch := make(chan requestResponse, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	return ch
}

func (c *connection) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *connection) deliver(resp requestResponse) {
	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	c.mu.Unlock()

	if ok {
		ch <- resp
	}
}

func (c *connection) close() error {
	var err error

	c.once.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})

	return err
}

func writeOp(ws *websocket.Conn, op int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return ws.WriteJSON(message{Op: op, Data: data})
}

func readOp(ws *websocket.Conn, op int, v any) error {
	var msg message
	if err := ws.ReadJSON(&msg); err != nil {
		return err
	}

	if msg.Op != op {
		return fmt.Errorf("expected op %d, got %d", op, msg.Op)
	}

	return json.Unmarshal(msg.Data, v)
}

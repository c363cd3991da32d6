// Package wstransport is a concrete transport.Transport used by the
// CLI demo (cmd/opcua-client). spec.md §1 puts the wire codec and
// TLS/SecureChannel negotiation out of scope for the client core; this
// package is the thing that would sit on the other side of that
// boundary in a deployed client. It frames requests/responses as JSON
// over a WebSocket rather than OPC UA binary — adapted from the
// teacher's pkg/client/client.go dial/reconnect/close-handler shape,
// which this package follows closely, substituting this repo's
// session/publish framing for the teacher's number-sequence one.
package wstransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

// frameKind tags the payload carried by a frame.
type frameKind string

const (
	kindCreateSessionReq  frameKind = "CreateSessionRequest"
	kindCreateSessionResp frameKind = "CreateSessionResponse"
	kindActivateReq       frameKind = "ActivateSessionRequest"
	kindActivateResp      frameKind = "ActivateSessionResponse"
	kindBrowseReq         frameKind = "BrowseRequest"
	kindBrowseResp        frameKind = "BrowseResponse"
	kindReadReq           frameKind = "ReadRequest"
	kindReadResp          frameKind = "ReadResponse"
	kindPublishReq        frameKind = "PublishRequest"
	kindPublishResp       frameKind = "PublishResponse"
	kindCreateSubReq      frameKind = "CreateSubscriptionRequest"
	kindCreateSubResp     frameKind = "CreateSubscriptionResponse"
	kindCreateItemsReq    frameKind = "CreateMonitoredItemsRequest"
	kindCreateItemsResp   frameKind = "CreateMonitoredItemsResponse"
	kindDeleteSubReq      frameKind = "DeleteSubscriptionRequest"
)

type frame struct {
	Kind frameKind       `json:"kind"`
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Options configures a Transport's dial target and reconnect policy.
type Options struct {
	Endpoint             string
	ConnectTimeout       time.Duration
	MaxReconnectAttempts uint64
}

// Transport is a gorilla/websocket-backed transport.Transport. It
// owns reconnect-with-backoff internally — the Channel that drives it
// never retries on its own (spec.md §4.2).
type Transport struct {
	opts   Options
	logger *logrus.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	closed        bool
	onEvent       func(transport.Event)
	lastCloseCode int

	pending map[string]func(frame)
}

// New constructs a Transport. Call Connect to dial.
func New(opts Options, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = 100
	}
	return &Transport{opts: opts, logger: logger, pending: make(map[string]func(frame))}
}

// Connect dials the endpoint, retrying with exponential backoff up to
// MaxReconnectAttempts, then starts the read loop in the background.
// Every later unexpected disconnect triggers the same retry policy;
// onEvent is called for every transition, possibly many times over
// the Transport's life.
func (t *Transport) Connect(ctx context.Context, onEvent func(transport.Event)) error {
	if !transport.Initialized() {
		return transport.ErrNotInitialized
	}

	t.mu.Lock()
	t.onEvent = onEvent
	t.mu.Unlock()

	if err := t.dial(ctx); err != nil {
		return err
	}

	t.emit(opcua.Good, transport.Connected)
	go t.readLoop()
	return nil
}

func (t *Transport) dial(ctx context.Context) error {
	dial := func() error {
		dialer := websocket.Dialer{HandshakeTimeout: t.opts.ConnectTimeout}
		conn, _, err := dialer.DialContext(ctx, t.opts.Endpoint, nil)
		if err != nil {
			return err
		}
		conn.SetCloseHandler(t.onCloseFrame)
		t.mu.Lock()
		t.conn = conn
		t.lastCloseCode = 0
		t.mu.Unlock()
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.opts.MaxReconnectAttempts)
	return backoff.Retry(dial, policy)
}

// onCloseFrame records the close code the server sent, following the
// teacher's closeHandler (pkg/client/client.go), and sends the
// default close-frame reply gorilla/websocket's own default handler
// would. handleDisconnect consults lastCloseCode to decide whether
// the close is worth reconnecting over.
func (t *Transport) onCloseFrame(code int, text string) error {
	t.mu.Lock()
	t.lastCloseCode = code
	t.mu.Unlock()

	if isKnownClientErrorCode(code) {
		t.logger.WithField("close_code", closeCodeName(code)).Warn("wstransport: server sent a non-retryable close code")
	}

	message := websocket.FormatCloseMessage(code, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	return nil
}

func (t *Transport) readLoop() {
	for {
		t.mu.Lock()
		conn := t.conn
		closed := t.closed
		t.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			t.logger.WithError(err).Debug("wstransport: read error")
			t.handleDisconnect()
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			t.logger.WithError(err).Warn("wstransport: malformed frame")
			continue
		}
		t.dispatch(f)
	}
}

func (t *Transport) dispatch(f frame) {
	t.mu.Lock()
	cb := t.pending[f.ID]
	delete(t.pending, f.ID)
	t.mu.Unlock()
	if cb != nil {
		cb(f)
	}
}

// handleDisconnect reacts to an unexpected read failure: it reports
// Disconnected immediately, then tries to redial in the background
// and reports Reconnected on success, following the teacher's
// closeHandler (fire-and-forget go c.connect()) so the close/read
// goroutine itself is never blocked by the retry loop.
func (t *Transport) handleDisconnect() {
	t.mu.Lock()
	alreadyClosed := t.closed
	closeCode := t.lastCloseCode
	t.mu.Unlock()
	if alreadyClosed {
		return
	}

	t.emit(opcua.BadConnectionClosed, transport.Disconnected)

	if isKnownClientErrorCode(closeCode) {
		t.logger.WithField("close_code", closeCodeName(closeCode)).Error("wstransport: not reconnecting after a non-retryable close code")
		return
	}

	go func() {
		if err := t.dial(context.Background()); err != nil {
			t.logger.WithError(err).Error("wstransport: reconnect failed permanently")
			return
		}
		t.emit(opcua.Good, transport.Reconnected)
		go t.readLoop()
	}()
}

func (t *Transport) emit(status opcua.StatusCode, kind transport.EventKind) {
	t.mu.Lock()
	onEvent := t.onEvent
	t.mu.Unlock()
	if onEvent != nil {
		onEvent(transport.Event{Status: status, Kind: kind})
	}
}

// Handle returns the underlying connection as the opaque handle.
func (t *Transport) Handle() transport.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// Close tears the connection down and flushes every pending
// continuation with a bad status, per spec.md §4.1's cancellation
// contract ("tearing down the Channel ... completes all pending
// continuations with a transport-error code").
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	pending := t.pending
	t.pending = make(map[string]func(frame))
	t.mu.Unlock()

	for _, cb := range pending {
		cb(frame{})
	}

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed"),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// send writes body as a frame of the given kind under the given
// correlation id. Callers that expect a reply pass the id of the
// asyncreq.Request they are about to await on, so the wire id and the
// AsyncRequest's diagnostic id are the same value.
func (t *Transport) send(kind frameKind, id string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	f := frame{Kind: kind, ID: id, Body: payload}
	encoded, err := json.Marshal(f)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return fmt.Errorf("wstransport: not connected")
	}

	return conn.WriteMessage(websocket.TextMessage, encoded)
}

func (t *Transport) awaitReply(id string, onReply func(frame)) {
	t.mu.Lock()
	t.pending[id] = onReply
	t.mu.Unlock()
}

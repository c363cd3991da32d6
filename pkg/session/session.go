// Package session implements the Session state machine of spec.md
// §4.3: CreateSession/ActivateSession bring-up and reconnect, Browse
// and Read, and the Publish loop with its acknowledgement ledger
// (§4.3.1).
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/go-opcua/asyncclient/pkg/channel"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/opcua/signal"
)

// Info is the SessionInfo of spec.md §3, populated once CreateSession
// succeeds.
type Info struct {
	SessionId           opcua.NodeId
	AuthenticationToken opcua.NodeId
	RevisedTimeout      time.Duration
	ServerNonce         opcua.ByteString
	ServerCertificate   opcua.ByteString
}

// NotificationHandler receives one Publish response's worth of
// notification data for the subscription it is registered against.
type NotificationHandler func(notifications []opcua.DataChangeNotification)

// BrowseCallback receives the service status and, on success, one
// BrowseResult per input description in the same order.
type BrowseCallback func(status opcua.StatusCode, results []opcua.BrowseResult)

// ReadCallback is the Read analogue of BrowseCallback.
type ReadCallback func(status opcua.StatusCode, results []opcua.DataValue)

// CreateCallback reports the terminal outcome of Create: Good once
// ActivateSession has completed successfully, or the fault code
// otherwise. spec.md §9 resolves the source's inconsistent
// callback-vs-callback-less Create overloads in favor of always
// taking exactly one callback of this shape.
type CreateCallback func(status opcua.StatusCode)

// Params configures a Session's identity when it creates itself on
// the channel.
type Params struct {
	ClientDescription string
	ServerURI         string
	EndpointURL       string
	SessionName       string
	ClientCertificate opcua.ByteString
	RequestedTimeout  time.Duration
}

// Session is the higher-level state machine layered on a Channel
// (spec.md §2). A Session is exclusively owned by whatever constructs
// it; its reference to the Channel is non-owning — the Channel must
// outlive every Session built on it.
type Session struct {
	channel *channel.Channel
	params  Params
	logger  *logrus.Logger

	channelConn *signal.ScopedConnection[opcua.StatusCode]

	mu                sync.Mutex
	created           bool
	creationRequested bool
	status            opcua.StatusCode
	info              Info
	createCallback    CreateCallback
	subscriptions     map[opcua.SubscriptionId]NotificationHandler
	ledger            ackLedger
	publishing        bool

	StatusChanged signal.Signal[opcua.StatusCode]
}

// New constructs a Session bound to channel. The Session subscribes
// to the channel's status transitions for the lifetime of the
// Session; call Close to release that subscription (it does not
// touch the Channel itself).
func New(ch *channel.Channel, params Params, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	if params.SessionName == "" {
		params.SessionName = uuid.NewString()
	}
	s := &Session{
		channel:       ch,
		params:        params,
		logger:        logger,
		status:        opcua.BadConnectionClosed,
		subscriptions: make(map[opcua.SubscriptionId]NotificationHandler),
	}
	s.channelConn = signal.Connect(&ch.StatusChanged, s.onChannelStatusChanged)
	return s
}

// generateClientNonce produces a fresh client nonce for CreateSession,
// using the same google/uuid-based generation SessionName falls back
// to when the caller does not supply one.
func (s *Session) generateClientNonce() opcua.ByteString {
	return opcua.ByteString(uuid.NewString())
}

// Status returns the Session's current StatusCode: Bad until
// ActivateSession succeeds, Good afterwards, back to a bad code on
// any fatal error.
func (s *Session) Status() opcua.StatusCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Info returns a copy of the SessionInfo populated by CreateSession.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// onChannelStatusChanged reacts to channel-connected events, handling
// both initial bring-up and reconnect (spec.md §4.3 "Internal
// protocol"): a fresh Create sequence if the session was never
// created, or a re-ActivateSession if it was created before and the
// channel just came back up.
func (s *Session) onChannelStatusChanged(status opcua.StatusCode) {
	if status.IsBad() {
		return
	}

	s.mu.Lock()
	created := s.created
	shouldCommitCreate := !created && s.creationRequested
	s.mu.Unlock()

	if shouldCommitCreate {
		s.commitCreate()
	} else if created {
		s.activate()
	}
}

// Create requests session creation. If the channel is already
// connected, CreateSession is submitted immediately; otherwise it is
// deferred until the channel's status becomes Good. Calling Create
// more than once has the effect of one call — the second call is a
// no-op beyond overwriting the callback with the latest one supplied.
func (s *Session) Create(cb CreateCallback) {
	s.mu.Lock()
	alreadyRequested := s.creationRequested
	s.creationRequested = true
	s.createCallback = cb
	s.mu.Unlock()

	if alreadyRequested {
		return
	}

	if s.channel.Status().IsNotBad() {
		s.commitCreate()
	}
}

// Delete clears all subscriptions and the acknowledgement ledger and
// stops publishing. It does not tear down the Channel; the caller is
// responsible for not using the Session afterwards. Any responses
// that arrive for requests submitted before Delete are absorbed
// safely by the closures that already captured what they need.
func (s *Session) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[opcua.SubscriptionId]NotificationHandler)
	s.ledger.reset()
	s.publishing = false
}

// Close releases the Session's subscription to the Channel's status
// signal. It does not delete session state — call Delete first if
// that is also wanted.
func (s *Session) Close() {
	s.channelConn.Close()
}

func (s *Session) buildRequestHeader() opcua.RequestHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return opcua.RequestHeader{
		AuthenticationToken: s.info.AuthenticationToken,
		Timestamp:           time.Now().UTC(),
		TimeoutHint:         60 * time.Second,
	}
}

func (s *Session) setStatus(status opcua.StatusCode) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.StatusChanged.Emit(status)
}

// onError faults the session: sets status to the received bad code
// and emits StatusChanged exactly once for the fault, per spec.md §7.
func (s *Session) onError(status opcua.StatusCode) {
	s.logger.WithField("status", status.String()).Warn("session fault")
	s.setStatus(status)
}

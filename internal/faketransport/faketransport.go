// Package faketransport implements transport.Transport synchronously
// and under direct test control, so the S1-S6 scenarios in spec.md §8
// can be expressed as literal Go tests. Nothing here talks to a real
// network; every Begin* call completes (or is held pending) exactly
// when the test tells it to.
package faketransport

import (
	"context"
	"sync"

	"github.com/go-opcua/asyncclient/pkg/asyncreq"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

// Fake is a scriptable transport.Transport. Test code drives it by
// calling Emit (to simulate a channel-level transition) and the
// CompleteX helpers (to simulate a service response arriving). Every
// Begin* that takes a completion callback wraps it in an
// asyncreq.Request before calling it, the same way a real transport
// does, so tests exercise the same completion path production code
// does.
type Fake struct {
	mu sync.Mutex

	onEvent func(transport.Event)
	handle  transport.Handle

	closed bool

	createSessionCalls   int
	activateSessionCalls int
	publishCalls         int

	pendingPublishes []*asyncreq.Request[*opcua.PublishResponse]

	// Failing, when set, makes every subsequent Begin* call return this
	// error synchronously instead of invoking its callback. This models
	// a transport-level submission failure — the callback is never
	// invoked at all.
	Failing error

	// nextReadServiceResult and nextBrowseServiceResult, when not Good,
	// make the next BeginRead/BeginBrowse call complete normally but
	// with this bad per-response ServiceResult, then reset to Good.
	// This is distinct from Failing: the request is dispatched and a
	// response does arrive, it is just a bad one — exactly spec.md §8's
	// S6 scenario, which Failing cannot express since Failing never
	// reaches the callback at all.
	nextReadServiceResult   opcua.StatusCode
	nextBrowseServiceResult opcua.StatusCode
}

// New constructs an unconnected Fake transport.
func New() *Fake {
	return &Fake{handle: "fake-handle"}
}

func (f *Fake) Connect(ctx context.Context, onEvent func(transport.Event)) error {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
	return nil
}

func (f *Fake) Handle() transport.Handle { return f.handle }

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Emit simulates a channel-level transition, delivering it to the
// Connect callback synchronously on the calling goroutine.
func (f *Fake) Emit(status opcua.StatusCode, kind transport.EventKind) {
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	if onEvent != nil {
		onEvent(transport.Event{Status: status, Kind: kind})
	}
}

// CreateSessionCalls returns how many times BeginCreateSession has
// been invoked so far.
func (f *Fake) CreateSessionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createSessionCalls
}

// ActivateSessionCalls returns how many times BeginActivateSession has
// been invoked so far.
func (f *Fake) ActivateSessionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activateSessionCalls
}

// PublishCalls returns how many times BeginPublish has been invoked
// so far — used by tests asserting the single-flight invariant.
func (f *Fake) PublishCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishCalls
}

// FailNextRead makes the next BeginRead call complete with a response
// whose ServiceResult is status instead of Good, then resets.
func (f *Fake) FailNextRead(status opcua.StatusCode) {
	f.mu.Lock()
	f.nextReadServiceResult = status
	f.mu.Unlock()
}

// FailNextBrowse makes the next BeginBrowse call complete with a
// response whose ServiceResult is status instead of Good, then resets.
func (f *Fake) FailNextBrowse(status opcua.StatusCode) {
	f.mu.Lock()
	f.nextBrowseServiceResult = status
	f.mu.Unlock()
}

func (f *Fake) BeginCreateSession(h transport.Handle, req *opcua.CreateSessionRequest, cb func(*opcua.CreateSessionResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	f.createSessionCalls++
	failing := f.Failing
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	areq.Complete(&opcua.CreateSessionResponse{
		ServiceResult:         opcua.Good,
		SessionId:             opcua.NumericNodeId(100, 0),
		AuthenticationToken:   opcua.NumericNodeId(101, 0),
		RevisedSessionTimeout: req.RequestedTimeout,
		ServerNonce:           opcua.ByteString("server-nonce-1"),
	}, nil)
	return nil
}

func (f *Fake) BeginActivateSession(h transport.Handle, req *opcua.ActivateSessionRequest, cb func(*opcua.ActivateSessionResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	f.activateSessionCalls++
	failing := f.Failing
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	areq.Complete(&opcua.ActivateSessionResponse{
		ServiceResult: opcua.Good,
		ServerNonce:   opcua.ByteString("server-nonce-2"),
	}, nil)
	return nil
}

func (f *Fake) BeginBrowse(h transport.Handle, header opcua.RequestHeader, descriptions []opcua.BrowseDescription, cb func(*opcua.BrowseResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	failing := f.Failing
	serviceResult := f.nextBrowseServiceResult
	f.nextBrowseServiceResult = opcua.Good
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	if serviceResult != opcua.Good {
		areq.Complete(&opcua.BrowseResponse{ServiceResult: serviceResult}, nil)
		return nil
	}
	results := make([]opcua.BrowseResult, len(descriptions))
	for i := range descriptions {
		results[i] = opcua.BrowseResult{StatusCode: opcua.Good}
	}
	areq.Complete(&opcua.BrowseResponse{ServiceResult: opcua.Good, Results: results}, nil)
	return nil
}

func (f *Fake) BeginRead(h transport.Handle, header opcua.RequestHeader, ids []opcua.ReadValueId, cb func(*opcua.ReadResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	failing := f.Failing
	serviceResult := f.nextReadServiceResult
	f.nextReadServiceResult = opcua.Good
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	if serviceResult != opcua.Good {
		areq.Complete(&opcua.ReadResponse{ServiceResult: serviceResult}, nil)
		return nil
	}
	results := make([]opcua.DataValue, len(ids))
	for i := range ids {
		results[i] = opcua.DataValue{StatusCode: opcua.Good}
	}
	areq.Complete(&opcua.ReadResponse{ServiceResult: opcua.Good, Results: results}, nil)
	return nil
}

// BeginPublish records the request and holds it pending until the
// test calls CompleteDataChange / CompleteKeepalive / FailPublish — real
// servers only respond to Publish when data or a keepalive is due, so
// tests control exactly when that happens.
func (f *Fake) BeginPublish(h transport.Handle, req *opcua.PublishRequest, cb func(*opcua.PublishResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	f.publishCalls++
	failing := f.Failing
	if failing != nil {
		f.mu.Unlock()
		return failing
	}
	f.pendingPublishes = append(f.pendingPublishes, areq)
	f.mu.Unlock()
	return nil
}

// PendingPublishCount reports how many Publish requests are currently
// held pending awaiting a Complete*/Fail call.
func (f *Fake) PendingPublishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pendingPublishes)
}

func (f *Fake) takeOldestPending() (*asyncreq.Request[*opcua.PublishResponse], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pendingPublishes) == 0 {
		return nil, false
	}
	p := f.pendingPublishes[0]
	f.pendingPublishes = f.pendingPublishes[1:]
	return p, true
}

// CompleteDataChange completes the oldest pending Publish with one
// data-bearing notification message for subID/seq carrying the given
// notifications.
func (f *Fake) CompleteDataChange(subID opcua.SubscriptionId, seq opcua.SequenceNumber, notifications []opcua.DataChangeNotification) bool {
	p, ok := f.takeOldestPending()
	if !ok {
		return false
	}
	p.Complete(&opcua.PublishResponse{
		ServiceResult:  opcua.Good,
		SubscriptionId: subID,
		NotificationMessage: opcua.NotificationMessage{
			SequenceNumber:   seq,
			NotificationData: notifications,
		},
	}, nil)
	return true
}

// CompleteKeepalive completes the oldest pending Publish with an
// empty-notification (keepalive) response.
func (f *Fake) CompleteKeepalive(subID opcua.SubscriptionId) bool {
	p, ok := f.takeOldestPending()
	if !ok {
		return false
	}
	p.Complete(&opcua.PublishResponse{ServiceResult: opcua.Good, SubscriptionId: subID}, nil)
	return true
}

// FailPublish completes the oldest pending Publish with a bad
// service-level status, simulating a session/channel-scoped failure.
func (f *Fake) FailPublish(status opcua.StatusCode) bool {
	p, ok := f.takeOldestPending()
	if !ok {
		return false
	}
	p.Complete(&opcua.PublishResponse{ServiceResult: status}, nil)
	return true
}

func (f *Fake) BeginCreateSubscription(h transport.Handle, params opcua.SubscriptionParams, cb func(*opcua.CreateSubscriptionResponse, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	failing := f.Failing
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	areq.Complete(&opcua.CreateSubscriptionResponse{ServiceResult: opcua.Good, SubscriptionId: 1}, nil)
	return nil
}

func (f *Fake) BeginCreateMonitoredItems(h transport.Handle, subID opcua.SubscriptionId, items []opcua.MonitoredItemCreateRequest, cb func([]opcua.MonitoredItemCreateResult, error)) error {
	areq := asyncreq.New(cb)
	f.mu.Lock()
	failing := f.Failing
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	results := make([]opcua.MonitoredItemCreateResult, len(items))
	for i := range items {
		results[i] = opcua.MonitoredItemCreateResult{StatusCode: opcua.Good, MonitoredItemId: uint32(i + 1)}
	}
	areq.Complete(results, nil)
	return nil
}

// BeginDeleteSubscription has no completion callback to wrap in an
// asyncreq.Request — it is fire-and-forget, same as the real
// transport's implementation.
func (f *Fake) BeginDeleteSubscription(h transport.Handle, subID opcua.SubscriptionId) error {
	f.mu.Lock()
	failing := f.Failing
	f.mu.Unlock()
	if failing != nil {
		return failing
	}
	return nil
}

package session

import (
	"context"
	"testing"

	"github.com/go-opcua/asyncclient/internal/faketransport"
	"github.com/go-opcua/asyncclient/pkg/channel"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

func newTestSession(t *testing.T) (*faketransport.Fake, *channel.Channel, *Session) {
	t.Helper()
	fake := faketransport.New()
	ch := channel.New(fake, nil)
	sess := New(ch, Params{ClientDescription: "test-client", EndpointURL: "opc.tcp://localhost:4840"}, nil)
	return fake, ch, sess
}

// S1: a fresh Session brought up on a connecting Channel runs
// CreateSession then ActivateSession exactly once each and reports
// Good to the Create callback.
func TestHappyPathCreatesAndActivates(t *testing.T) {
	fake, ch, sess := newTestSession(t)

	done := make(chan opcua.StatusCode, 1)
	sess.Create(func(status opcua.StatusCode) { done <- status })

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)

	status := <-done
	if status != opcua.Good {
		t.Fatalf("expected Good, got %s", status)
	}
	if fake.CreateSessionCalls() != 1 {
		t.Fatalf("expected 1 CreateSession call, got %d", fake.CreateSessionCalls())
	}
	if fake.ActivateSessionCalls() != 1 {
		t.Fatalf("expected 1 ActivateSession call, got %d", fake.ActivateSessionCalls())
	}
	if sess.Status() != opcua.Good {
		t.Fatalf("expected session status Good, got %s", sess.Status())
	}
}

// S2: Browse reports per-item results without faulting the session
// when the service result itself is Good.
func TestBrowseReturnsResultsPerDescription(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	bringUp(t, fake, ch, sess)

	descriptions := []opcua.BrowseDescription{
		{NodeToBrowse: opcua.NumericNodeId(1, 2)},
		{NodeToBrowse: opcua.NumericNodeId(2, 2)},
	}

	done := make(chan struct{})
	var gotStatus opcua.StatusCode
	var gotResults []opcua.BrowseResult
	sess.Browse(descriptions, func(status opcua.StatusCode, results []opcua.BrowseResult) {
		gotStatus = status
		gotResults = results
		close(done)
	})
	<-done

	if gotStatus.IsBad() {
		t.Fatalf("expected Good service result, got %s", gotStatus)
	}
	if len(gotResults) != len(descriptions) {
		t.Fatalf("expected %d results, got %d", len(descriptions), len(gotResults))
	}
	if sess.Status() != opcua.Good {
		t.Fatalf("a successful Browse must not change session status, got %s", sess.Status())
	}
}

// S3: StartPublishing issues exactly one Publish while the first
// request is outstanding, even when a second subscription registers
// in the meantime — the single-flight gate in publish().
func TestPublishIsSingleFlight(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	bringUp(t, fake, ch, sess)

	sess.StartPublishing(1, func(notifications []opcua.DataChangeNotification) {})
	if fake.PublishCalls() != 1 {
		t.Fatalf("expected 1 Publish call after first subscription, got %d", fake.PublishCalls())
	}

	sess.StartPublishing(2, func(notifications []opcua.DataChangeNotification) {})
	if fake.PublishCalls() != 1 {
		t.Fatalf("expected no additional Publish call while one is outstanding, got %d", fake.PublishCalls())
	}

	if !fake.CompleteKeepalive(1) {
		t.Fatal("expected one pending Publish to complete")
	}

	if fake.PublishCalls() != 2 {
		t.Fatalf("expected a follow-up Publish once the first completed, got %d", fake.PublishCalls())
	}
}

// S4: a data-bearing Publish response delivers to the matching
// subscription's handler and adds the (subId, seq) pair to the
// acknowledgement ledger for the next outbound request.
func TestPublishDeliversNotificationsAndQueuesAck(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	bringUp(t, fake, ch, sess)

	var delivered []opcua.DataChangeNotification
	done := make(chan struct{})
	sess.StartPublishing(7, func(notifications []opcua.DataChangeNotification) {
		delivered = notifications
		close(done)
	})

	notifications := []opcua.DataChangeNotification{
		{ClientHandle: 1, Value: opcua.DataValue{StatusCode: opcua.Good, Value: 42}},
	}
	if !fake.CompleteDataChange(7, 100, notifications) {
		t.Fatal("expected one pending Publish to complete")
	}
	<-done

	if len(delivered) != 1 || delivered[0].ClientHandle != 1 {
		t.Fatalf("unexpected delivered notifications: %+v", delivered)
	}

	// The follow-up Publish is issued before the handler runs, so the
	// ack has already moved from pending onto that outbound request.
	if len(sess.ledger.inflight) != 1 {
		t.Fatalf("expected the ack for seq 100 to be carried by the next outbound Publish, got %+v", sess.ledger.inflight)
	}
	ack := sess.ledger.inflight[0]
	if ack.SubscriptionId != 7 || ack.SequenceNumber != 100 {
		t.Fatalf("unexpected queued ack: %+v", ack)
	}
}

// S5: reconnect after a disconnect re-activates an already-created
// session without re-running CreateSession, and the Create callback
// already consumed by the first activation is not invoked again.
func TestReconnectReactivatesWithoutRecreating(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	calls := 0
	sess.Create(func(status opcua.StatusCode) { calls++ })
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)
	if calls != 1 {
		t.Fatalf("expected exactly 1 Create callback invocation, got %d", calls)
	}

	fake.Emit(opcua.BadConnectionClosed, transport.Disconnected)

	fake.Emit(opcua.Good, transport.Reconnected)

	if fake.CreateSessionCalls() != 1 {
		t.Fatalf("expected CreateSession to run exactly once across reconnect, got %d", fake.CreateSessionCalls())
	}
	if fake.ActivateSessionCalls() != 2 {
		t.Fatalf("expected ActivateSession to run again on reconnect, got %d", fake.ActivateSessionCalls())
	}
	if calls != 1 {
		t.Fatalf("expected the Create callback to still have fired exactly once, got %d", calls)
	}
	if sess.Status() != opcua.Good {
		t.Fatalf("expected session status Good after reactivation, got %s", sess.Status())
	}
}

// A bad service-level Publish result faults the session and drops the
// single-flight gate so a subsequent reconnect can recover. This is a
// Publish-scoped fault, not spec.md §8's S6 (see
// TestReadServiceFaultDoesNotFaultSession below for the literal S6).
func TestPublishServiceFaultClearsGateAndFaultsSession(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	bringUp(t, fake, ch, sess)

	sess.StartPublishing(1, func(notifications []opcua.DataChangeNotification) {})
	if !fake.FailPublish(opcua.BadSessionIdInvalid) {
		t.Fatal("expected one pending Publish to fail")
	}

	if sess.Status() != opcua.BadSessionIdInvalid {
		t.Fatalf("expected session to fault with BadSessionIdInvalid, got %s", sess.Status())
	}

	sess.mu.Lock()
	publishing := sess.publishing
	sess.mu.Unlock()
	if publishing {
		t.Fatal("expected the single-flight gate to be cleared after the fault")
	}
}

// S6: submitting Read against a session whose transport returns a bad
// per-response ServiceResult delivers that code to the Read callback
// and leaves the session status unchanged — per spec.md §7, a bad
// service result on a non-fatal operation is reported to the caller,
// not treated as a session fault.
func TestReadServiceFaultDoesNotFaultSession(t *testing.T) {
	fake, ch, sess := newTestSession(t)
	bringUp(t, fake, ch, sess)

	fake.FailNextRead(opcua.BadSessionIdInvalid)

	done := make(chan struct{})
	var gotStatus opcua.StatusCode
	sess.Read([]opcua.ReadValueId{{NodeId: opcua.NumericNodeId(1, 2)}}, func(status opcua.StatusCode, results []opcua.DataValue) {
		gotStatus = status
		close(done)
	})
	<-done

	if gotStatus != opcua.BadSessionIdInvalid {
		t.Fatalf("expected Read callback to receive BadSessionIdInvalid, got %s", gotStatus)
	}
	if sess.Status() != opcua.Good {
		t.Fatalf("expected session status to remain Good after a bad Read result, got %s", sess.Status())
	}
}

func bringUp(t *testing.T, fake *faketransport.Fake, ch *channel.Channel, sess *Session) {
	t.Helper()
	done := make(chan opcua.StatusCode, 1)
	sess.Create(func(status opcua.StatusCode) { done <- status })
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)
	if status := <-done; status != opcua.Good {
		t.Fatalf("bring-up failed: %s", status)
	}
}

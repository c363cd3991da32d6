package session

import "github.com/go-opcua/asyncclient/pkg/opcua"

// ackLedger is the Acknowledgement Ledger of spec.md §2.5 / §3: which
// sequence numbers have been received-but-unacked (pending) and which
// were included in the currently outstanding Publish (inflight).
// Every method assumes the caller already holds Session's lock — the
// ledger has no lock of its own.
type ackLedger struct {
	pending  []opcua.SubscriptionAcknowledgement
	inflight []opcua.SubscriptionAcknowledgement
}

// add appends a newly received (subId, seq) pair to pending. Invariant
// 3 in spec.md §4.3.1 (no pair appears twice across pending ∪
// inflight) holds because each pair is added exactly once, at the
// point its notification is received.
func (l *ackLedger) add(subID opcua.SubscriptionId, seq opcua.SequenceNumber) {
	l.pending = append(l.pending, opcua.SubscriptionAcknowledgement{
		SubscriptionId: subID,
		SequenceNumber: seq,
	})
}

// takeForPublish moves pending into inflight and returns the slice to
// send on the next outbound Publish. Called once per publish() under
// the single-flight gate.
func (l *ackLedger) takeForPublish() []opcua.SubscriptionAcknowledgement {
	acks := l.pending
	l.pending = nil
	l.inflight = acks
	return acks
}

// clearInflight drops the acks sent on the Publish that just
// completed — they have reached the server and must not be resent.
func (l *ackLedger) clearInflight() {
	l.inflight = nil
}

// reset clears both lists, used by Session.Delete.
func (l *ackLedger) reset() {
	l.pending = nil
	l.inflight = nil
}

package session

import "github.com/go-opcua/asyncclient/pkg/opcua"

// StartPublishing registers a subscription's notification handler and
// triggers a Publish if none is currently in flight (spec.md §4.3.1
// invariant 4: registering the first subscription triggers at most
// one immediate Publish; later registrations never do, because
// publish() is already a single-flight gate).
func (s *Session) StartPublishing(subID opcua.SubscriptionId, handler NotificationHandler) {
	s.mu.Lock()
	s.subscriptions[subID] = handler
	alreadyPublishing := s.publishing
	s.mu.Unlock()

	if !alreadyPublishing {
		s.publish()
	}
}

// StopPublishing removes a subscription from the registry. Any
// Publish already in flight is allowed to complete naturally; its
// response handler looks the subscription up again and simply finds
// nothing to deliver to.
func (s *Session) StopPublishing(subID opcua.SubscriptionId) {
	s.mu.Lock()
	delete(s.subscriptions, subID)
	s.mu.Unlock()
}

// publish is the single-flight gate described in spec.md §4.3.1. It
// is always safe to call: if a Publish is already outstanding, or
// there is nothing to publish for, it is a no-op.
func (s *Session) publish() {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return
	}
	if len(s.subscriptions) == 0 {
		s.mu.Unlock()
		return
	}
	s.publishing = true
	acks := s.ledger.takeForPublish()
	s.mu.Unlock()

	header := s.buildRequestHeader()
	req := &opcua.PublishRequest{Header: header, Acknowledgements: acks}

	err := s.channel.BeginPublish(req, s.onPublishResponse)
	if err != nil {
		s.onError(opcua.BadCommunicationError)
	}
}

// onPublishResponse implements spec.md §4.3.1 step 4, with the Open
// Questions resolution applied: publishing is cleared on every
// completion — good, bad, or keepalive — rather than only on
// notification-bearing responses, so the loop never stalls on a
// keepalive.
func (s *Session) onPublishResponse(resp *opcua.PublishResponse, err error) {
	if err != nil {
		s.clearPublishingOnFault()
		s.onError(opcua.BadCommunicationError)
		return
	}
	if resp.ServiceResult.IsBad() {
		s.clearPublishingOnFault()
		s.onError(resp.ServiceResult)
		return
	}
	for _, result := range resp.Results {
		if result.IsBad() {
			// A rejected ack cannot be re-sent (spec.md §7); recovery
			// would require a protocol-level redesign, so this is
			// treated as fatal like any other Publish-scoped error.
			s.clearPublishingOnFault()
			s.onError(result)
			return
		}
	}

	var handler NotificationHandler
	hasNotifications := len(resp.NotificationMessage.NotificationData) > 0

	s.mu.Lock()
	s.publishing = false
	s.ledger.clearInflight()
	if hasNotifications {
		s.ledger.add(resp.SubscriptionId, resp.NotificationMessage.SequenceNumber)
		handler = s.subscriptions[resp.SubscriptionId]
	}
	s.mu.Unlock()

	s.publish()

	if handler != nil {
		handler(resp.NotificationMessage.NotificationData)
	}
}

// clearPublishingOnFault drops the single-flight gate on a faulting
// Publish completion so a subsequent Create/reconnect is not stuck
// believing a Publish is still outstanding. Acks already inflight are
// dropped per the reconnect-safe-default resolution in spec.md §9 —
// the server will re-send unacknowledged notifications on the new
// session rather than have the client replay acks it cannot confirm
// were received.
func (s *Session) clearPublishingOnFault() {
	s.mu.Lock()
	s.publishing = false
	s.ledger.clearInflight()
	s.mu.Unlock()
}

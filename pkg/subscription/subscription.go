// Package subscription implements the per-subscription record of
// spec.md §4.4: created via the Session's Channel, it registers
// itself with the Session's Publish loop on success and owns the set
// of monitored items it creates.
package subscription

import (
	"sync"

	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/session"
)

// NotificationSink delivers one Publish response's worth of
// DataChangeNotification batches for this subscription.
type NotificationSink func(notifications []opcua.DataChangeNotification)

// StatusSink reports subscription-level failures — currently fired
// only when the owning Session faults while this subscription is
// registered.
type StatusSink func(status opcua.StatusCode)

// CreateCallback reports the outcome of CreateSubscription.
type CreateCallback func(status opcua.StatusCode, id opcua.SubscriptionId)

// MonitoredItemsCallback reports per-item outcomes of
// CreateMonitoredItems, in the same order as the input requests.
type MonitoredItemsCallback func(status opcua.StatusCode, results []opcua.MonitoredItemCreateResult)

// Subscription is driven externally: construct it, call Create, then
// CreateMonitoredItems. The Session does not inspect monitored-item
// state; it only dispatches notifications by subscription ID to the
// handler StartPublishing registered.
type Subscription struct {
	sess   *session.Session
	params opcua.SubscriptionParams
	sink   NotificationSink
	onFault StatusSink

	mu             sync.Mutex
	id             opcua.SubscriptionId
	created        bool
	monitoredItems map[opcua.ClientHandle]opcua.ReadValueId
}

// Transport is the subset of transport operations a Subscription
// needs to issue CreateSubscription / CreateMonitoredItems. Session
// does not expose these services itself (spec.md scopes them to
// Subscription, §4.4), so the owner supplies a way to invoke them —
// in practice the same Channel the Session was built on.
type Transport interface {
	BeginCreateSubscription(params opcua.SubscriptionParams, cb func(*opcua.CreateSubscriptionResponse, error)) error
	BeginCreateMonitoredItems(subID opcua.SubscriptionId, items []opcua.MonitoredItemCreateRequest, cb func([]opcua.MonitoredItemCreateResult, error)) error
	BeginDeleteSubscription(subID opcua.SubscriptionId) error
}

// New constructs a Subscription owned by sess. sink receives
// notifications once the subscription is live; onFault, if non-nil,
// is invoked if the owning Session faults while this subscription is
// registered.
func New(sess *session.Session, params opcua.SubscriptionParams, sink NotificationSink, onFault StatusSink) *Subscription {
	return &Subscription{
		sess:           sess,
		params:         params,
		sink:           sink,
		onFault:        onFault,
		monitoredItems: make(map[opcua.ClientHandle]opcua.ReadValueId),
	}
}

// Create issues CreateSubscription through t and, on success,
// registers the subscription with the owning Session's Publish loop.
func (sub *Subscription) Create(t Transport, cb CreateCallback) {
	err := t.BeginCreateSubscription(sub.params, func(resp *opcua.CreateSubscriptionResponse, err error) {
		if err != nil {
			cb(opcua.BadCommunicationError, 0)
			return
		}
		if resp.ServiceResult.IsBad() {
			cb(resp.ServiceResult, 0)
			return
		}

		sub.mu.Lock()
		sub.id = resp.SubscriptionId
		sub.created = true
		sub.mu.Unlock()

		if sub.onFault != nil {
			sub.sess.StatusChanged.Connect(func(status opcua.StatusCode) {
				sub.mu.Lock()
				registered := sub.created
				sub.mu.Unlock()
				if registered && status.IsBad() {
					sub.onFault(status)
				}
			})
		}

		sub.sess.StartPublishing(resp.SubscriptionId, sub.deliver)
		cb(opcua.Good, resp.SubscriptionId)
	})
	if err != nil {
		cb(opcua.BadCommunicationError, 0)
	}
}

func (sub *Subscription) deliver(notifications []opcua.DataChangeNotification) {
	if sub.sink != nil {
		sub.sink(notifications)
	}
}

// ID returns the server-assigned SubscriptionId, valid only once
// Create has completed successfully.
func (sub *Subscription) ID() opcua.SubscriptionId {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.id
}

// CreateMonitoredItems issues the CreateMonitoredItems service call
// for the given items. On a good per-item result, the item becomes
// live and is recorded in the subscription's monitored-item set,
// keyed by the client-assigned ClientHandle in each item's
// RequestedParams.
func (sub *Subscription) CreateMonitoredItems(t Transport, items []opcua.MonitoredItemCreateRequest, cb MonitoredItemsCallback) {
	sub.mu.Lock()
	id := sub.id
	sub.mu.Unlock()

	err := t.BeginCreateMonitoredItems(id, items, func(results []opcua.MonitoredItemCreateResult, err error) {
		if err != nil {
			cb(opcua.BadCommunicationError, nil)
			return
		}

		sub.mu.Lock()
		for i, result := range results {
			if i >= len(items) {
				break
			}
			if result.StatusCode.IsNotBad() {
				sub.monitoredItems[items[i].RequestedParams.ClientHandle] = items[i].ItemToMonitor
			}
		}
		sub.mu.Unlock()

		cb(opcua.Good, results)
	})
	if err != nil {
		cb(opcua.BadCommunicationError, nil)
	}
}

// Delete stops publishing for this subscription on the owning
// Session and issues DeleteSubscription through t. This is the
// destruction point spec.md §3 describes: removal from the Session's
// registry.
func (sub *Subscription) Delete(t Transport) error {
	sub.mu.Lock()
	id := sub.id
	sub.monitoredItems = make(map[opcua.ClientHandle]opcua.ReadValueId)
	sub.created = false
	sub.mu.Unlock()

	sub.sess.StopPublishing(id)
	return t.BeginDeleteSubscription(id)
}

package subscription

import (
	"context"
	"testing"

	"github.com/go-opcua/asyncclient/internal/faketransport"
	"github.com/go-opcua/asyncclient/pkg/channel"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/session"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

func bringUpSession(t *testing.T) (*faketransport.Fake, *channel.Channel, *session.Session) {
	t.Helper()
	fake := faketransport.New()
	ch := channel.New(fake, nil)
	sess := session.New(ch, session.Params{ClientDescription: "test-client", EndpointURL: "opc.tcp://localhost:4840"}, nil)

	done := make(chan opcua.StatusCode, 1)
	sess.Create(func(status opcua.StatusCode) { done <- status })
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)
	if status := <-done; status != opcua.Good {
		t.Fatalf("bring-up failed: %s", status)
	}
	return fake, ch, sess
}

func TestCreateRegistersWithSessionPublishLoop(t *testing.T) {
	fake, ch, sess := bringUpSession(t)

	sub := New(sess, opcua.SubscriptionParams{PublishingEnabled: true}, func([]opcua.DataChangeNotification) {}, nil)

	done := make(chan struct{})
	var status opcua.StatusCode
	var id opcua.SubscriptionId
	sub.Create(ch, func(s opcua.StatusCode, i opcua.SubscriptionId) {
		status, id = s, i
		close(done)
	})
	<-done

	if status.IsBad() {
		t.Fatalf("expected CreateSubscription to succeed, got %s", status)
	}
	if id != sub.ID() {
		t.Fatalf("expected sub.ID() to match the callback's id, got %d vs %d", sub.ID(), id)
	}
	if fake.PublishCalls() != 1 {
		t.Fatalf("expected registering the subscription to trigger one Publish, got %d", fake.PublishCalls())
	}
}

func TestCreateMonitoredItemsRecordsLiveItems(t *testing.T) {
	_, ch, sess := bringUpSession(t)
	sub := New(sess, opcua.SubscriptionParams{PublishingEnabled: true}, func([]opcua.DataChangeNotification) {}, nil)

	createDone := make(chan struct{})
	sub.Create(ch, func(opcua.StatusCode, opcua.SubscriptionId) { close(createDone) })
	<-createDone

	items := []opcua.MonitoredItemCreateRequest{
		{
			ItemToMonitor:   opcua.ReadValueId{NodeId: opcua.NumericNodeId(1, 2), AttributeId: 13},
			MonitoringMode:  opcua.MonitoringReporting,
			RequestedParams: opcua.MonitoringParameters{ClientHandle: 1},
		},
	}

	itemsDone := make(chan struct{})
	var status opcua.StatusCode
	var results []opcua.MonitoredItemCreateResult
	sub.CreateMonitoredItems(ch, items, func(s opcua.StatusCode, r []opcua.MonitoredItemCreateResult) {
		status, results = s, r
		close(itemsDone)
	})
	<-itemsDone

	if status.IsBad() {
		t.Fatalf("expected CreateMonitoredItems to succeed, got %s", status)
	}
	if len(results) != 1 || results[0].StatusCode.IsBad() {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(sub.monitoredItems) != 1 {
		t.Fatalf("expected 1 live monitored item, got %d", len(sub.monitoredItems))
	}
}

func TestDeleteStopsPublishingForThisSubscription(t *testing.T) {
	delivered := 0
	fake, ch, sess := bringUpSession(t)
	sub := New(sess, opcua.SubscriptionParams{PublishingEnabled: true}, func([]opcua.DataChangeNotification) { delivered++ }, nil)

	createDone := make(chan struct{})
	sub.Create(ch, func(opcua.StatusCode, opcua.SubscriptionId) { close(createDone) })
	<-createDone

	subID := sub.ID()
	if err := sub.Delete(ch); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Draining the outstanding Publish must not deliver to this
	// subscription's sink any more, since StopPublishing removed it
	// from the Session's registry before the drain.
	fake.CompleteDataChange(subID, 1, []opcua.DataChangeNotification{{ClientHandle: 1}})

	if delivered != 0 {
		t.Fatalf("expected no deliveries after Delete, got %d", delivered)
	}
}

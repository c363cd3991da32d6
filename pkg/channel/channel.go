// Package channel owns a single secure channel to one OPC UA endpoint
// and publishes its up/down status (spec.md §4.2). It never retries
// on its own — reconnect behavior belongs to the Transport
// implementation it drives.
package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/opcua/signal"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

// ErrNotConnected is returned synchronously by any submission method
// when the channel's status is not Good.
var ErrNotConnected = errors.New("channel: not connected")

// Channel is the submission point for every outbound request. It is
// safe for concurrent use: Connect is called once by the owning
// application, while event delivery and submissions may happen
// concurrently from transport callbacks and application goroutines.
type Channel struct {
	transport transport.Transport
	logger    *logrus.Logger

	mu     sync.Mutex
	status opcua.StatusCode
	handle transport.Handle

	StatusChanged signal.Signal[opcua.StatusCode]
}

// New constructs a Channel bound to the given Transport. The Channel
// does not take ownership of the Transport's lifetime beyond calling
// Close when the Channel itself is closed.
func New(t transport.Transport, logger *logrus.Logger) *Channel {
	if logger == nil {
		logger = logrus.New()
	}
	return &Channel{transport: t, logger: logger, status: opcua.BadConnectionClosed}
}

// Connect initiates an asynchronous connect. The Transport reports
// every subsequent transition — Connected, Reconnected, Disconnected
// — through its own event stream; Channel republishes those as
// StatusChanged transitions keyed purely on the resulting StatusCode.
func (c *Channel) Connect(ctx context.Context) error {
	return c.transport.Connect(ctx, c.onTransportEvent)
}

func (c *Channel) onTransportEvent(event transport.Event) {
	c.mu.Lock()
	c.status = event.Status
	if event.Status.IsNotBad() {
		c.handle = c.transport.Handle()
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"event":  event.Kind.String(),
		"status": event.Status.String(),
	}).Debug("channel status changed")

	c.StatusChanged.Emit(event.Status)
}

// Status returns the channel's current StatusCode.
func (c *Channel) Status() opcua.StatusCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Handle returns the opaque transport handle, valid only while Status
// is Good (not bad). Callers must check the returned ok value.
func (c *Channel) Handle() (transport.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.status.IsNotBad()
}

// requireGood returns the current handle, or ErrNotConnected if the
// channel is not usable, so every submission method can fail
// synchronously per spec.md §3's Channel invariant.
func (c *Channel) requireGood() (transport.Handle, error) {
	handle, ok := c.Handle()
	if !ok {
		return nil, ErrNotConnected
	}
	return handle, nil
}

// BeginCreateSession submits a CreateSession request, failing
// synchronously if the channel is not connected.
func (c *Channel) BeginCreateSession(req *opcua.CreateSessionRequest, cb func(*opcua.CreateSessionResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginCreateSession(handle, req, cb)
}

// BeginActivateSession submits an ActivateSession request.
func (c *Channel) BeginActivateSession(req *opcua.ActivateSessionRequest, cb func(*opcua.ActivateSessionResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginActivateSession(handle, req, cb)
}

// BeginBrowse submits a Browse request.
func (c *Channel) BeginBrowse(header opcua.RequestHeader, descriptions []opcua.BrowseDescription, cb func(*opcua.BrowseResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginBrowse(handle, header, descriptions, cb)
}

// BeginRead submits a Read request.
func (c *Channel) BeginRead(header opcua.RequestHeader, ids []opcua.ReadValueId, cb func(*opcua.ReadResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginRead(handle, header, ids, cb)
}

// BeginPublish submits a Publish request.
func (c *Channel) BeginPublish(req *opcua.PublishRequest, cb func(*opcua.PublishResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginPublish(handle, req, cb)
}

// BeginCreateSubscription submits a CreateSubscription request.
func (c *Channel) BeginCreateSubscription(params opcua.SubscriptionParams, cb func(*opcua.CreateSubscriptionResponse, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginCreateSubscription(handle, params, cb)
}

// BeginCreateMonitoredItems submits a CreateMonitoredItems request.
func (c *Channel) BeginCreateMonitoredItems(subID opcua.SubscriptionId, items []opcua.MonitoredItemCreateRequest, cb func([]opcua.MonitoredItemCreateResult, error)) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginCreateMonitoredItems(handle, subID, items, cb)
}

// BeginDeleteSubscription submits a DeleteSubscription request.
func (c *Channel) BeginDeleteSubscription(subID opcua.SubscriptionId) error {
	handle, err := c.requireGood()
	if err != nil {
		return err
	}
	return c.transport.BeginDeleteSubscription(handle, subID)
}

// Close tears down the underlying transport. The transport flushes
// every pending AsyncRequest continuation with a bad status before
// returning, per spec.md §4.1's cancellation contract.
func (c *Channel) Close() error {
	return c.transport.Close()
}

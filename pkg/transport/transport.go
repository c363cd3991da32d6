// Package transport defines the boundary to the underlying OPC UA
// transport: secure-channel negotiation, binary encoding, and the
// begin_* service calls spec.md §6 describes as external
// collaborators. This package only states the contract; concrete
// implementations live in internal/faketransport (tests) and
// transport/wstransport (the CLI demo).
package transport

import (
	"context"

	"github.com/go-opcua/asyncclient/pkg/opcua"
)

// EventKind enumerates the channel-level transitions a Transport
// reports through the callback passed to Connect.
type EventKind int

const (
	Connected EventKind = iota
	Reconnected
	Disconnected
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case Reconnected:
		return "Reconnected"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Event is one channel-level transition: a new status alongside what
// kind of transition produced it.
type Event struct {
	Status StatusCode
	Kind   EventKind
}

// StatusCode aliases opcua.StatusCode to avoid importing opcua at
// every call site that only needs a status.
type StatusCode = opcua.StatusCode

// Handle is the opaque transport handle a Channel exposes once
// connected, valid only while status is Good.
type Handle interface{}

// Transport is the contract a Channel drives. Connect is asynchronous:
// it returns once the connection attempt has been submitted, and
// onEvent is invoked for every subsequent transition — possibly many
// times over the transport's life as it reconnects.
//
// Every Begin* method must invoke its callback exactly once unless it
// returns a non-nil error, in which case the callback is never
// invoked and the caller must handle the synchronous failure itself
// (spec.md §4.1).
type Transport interface {
	Connect(ctx context.Context, onEvent func(Event)) error
	Handle() Handle
	Close() error

	BeginCreateSession(h Handle, req *opcua.CreateSessionRequest, cb func(*opcua.CreateSessionResponse, error)) error
	BeginActivateSession(h Handle, req *opcua.ActivateSessionRequest, cb func(*opcua.ActivateSessionResponse, error)) error
	BeginBrowse(h Handle, header opcua.RequestHeader, descriptions []opcua.BrowseDescription, cb func(*opcua.BrowseResponse, error)) error
	BeginRead(h Handle, header opcua.RequestHeader, ids []opcua.ReadValueId, cb func(*opcua.ReadResponse, error)) error
	BeginPublish(h Handle, req *opcua.PublishRequest, cb func(*opcua.PublishResponse, error)) error

	BeginCreateSubscription(h Handle, params opcua.SubscriptionParams, cb func(*opcua.CreateSubscriptionResponse, error)) error
	BeginCreateMonitoredItems(h Handle, subID opcua.SubscriptionId, items []opcua.MonitoredItemCreateRequest, cb func([]opcua.MonitoredItemCreateResult, error)) error
	BeginDeleteSubscription(h Handle, subID opcua.SubscriptionId) error
}

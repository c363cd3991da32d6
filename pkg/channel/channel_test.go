package channel

import (
	"context"
	"testing"

	"github.com/go-opcua/asyncclient/internal/faketransport"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

func TestChannelStartsDisconnected(t *testing.T) {
	ch := New(faketransport.New(), nil)
	if ch.Status() != opcua.BadConnectionClosed {
		t.Fatalf("expected a new Channel to start BadConnectionClosed, got %s", ch.Status())
	}
	if _, ok := ch.Handle(); ok {
		t.Fatal("expected no usable handle before connecting")
	}
}

func TestConnectPublishesGoodStatus(t *testing.T) {
	fake := faketransport.New()
	ch := New(fake, nil)

	var got []opcua.StatusCode
	ch.StatusChanged.Connect(func(status opcua.StatusCode) { got = append(got, status) })

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)

	if ch.Status() != opcua.Good {
		t.Fatalf("expected Good status, got %s", ch.Status())
	}
	if len(got) != 1 || got[0] != opcua.Good {
		t.Fatalf("expected exactly one Good StatusChanged emission, got %+v", got)
	}
	if _, ok := ch.Handle(); !ok {
		t.Fatal("expected a usable handle once connected")
	}
}

func TestSubmissionFailsSynchronouslyWhenNotConnected(t *testing.T) {
	ch := New(faketransport.New(), nil)

	err := ch.BeginCreateSession(&opcua.CreateSessionRequest{}, func(*opcua.CreateSessionResponse, error) {
		t.Fatal("callback must not be invoked on synchronous failure")
	})
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDisconnectClearsHandle(t *testing.T) {
	fake := faketransport.New()
	ch := New(fake, nil)
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fake.Emit(opcua.Good, transport.Connected)
	fake.Emit(opcua.BadConnectionClosed, transport.Disconnected)

	if ch.Status() != opcua.BadConnectionClosed {
		t.Fatalf("expected BadConnectionClosed after disconnect, got %s", ch.Status())
	}
	if _, ok := ch.Handle(); ok {
		t.Fatal("expected no usable handle after disconnect")
	}
}

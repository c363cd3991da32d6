// Package opcuaclient is the application-facing facade spec.md does
// not itself specify (it specifies Channel/Session/Subscription as
// independent collaborators) but that every embedding application
// needs, the way the teacher's pkg/client.Client wraps its WebSocket
// connection and session state behind Connect/Close.
package opcuaclient

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-opcua/asyncclient/pkg/channel"
	"github.com/go-opcua/asyncclient/pkg/config"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/session"
	"github.com/go-opcua/asyncclient/pkg/subscription"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

// Params configures a Client. Transport is the concrete
// transport.Transport to drive (a real wstransport.Transport in
// production, a faketransport.Fake in tests).
type Params struct {
	Profile     config.ConnectionProfile
	Transport   transport.Transport
	SessionInfo session.Params
	Logger      *logrus.Logger
}

// Client owns a Channel and a Session built on it, and is the
// convenience entry point an application uses instead of wiring
// Channel/Session/Subscription together itself.
type Client struct {
	Channel *channel.Channel
	Session *session.Session
	Profile config.ConnectionProfile
	logger  *logrus.Logger
}

// New constructs a Client. It does not connect — call Connect.
func New(params Params) *Client {
	logger := params.Logger
	if logger == nil {
		logger = logrus.New()
	}
	ch := channel.New(params.Transport, logger)
	sess := session.New(ch, params.SessionInfo, logger)
	return &Client{Channel: ch, Session: sess, Profile: params.Profile, logger: logger}
}

// Connect dials the Channel's transport. Session creation is a
// separate step — call CreateSession once Connect returns.
func (c *Client) Connect(ctx context.Context) error {
	return c.Channel.Connect(ctx)
}

// CreateSession requests session creation and reports the terminal
// CreateSession+ActivateSession outcome through cb.
func (c *Client) CreateSession(cb session.CreateCallback) {
	c.Session.Create(cb)
}

// Subscribe issues CreateSubscription and wires the result into the
// Session's Publish loop, returning the live Subscription once the
// server has assigned it an ID.
func (c *Client) Subscribe(params opcua.SubscriptionParams, sink subscription.NotificationSink) (*subscription.Subscription, error) {
	sub := subscription.New(c.Session, params, sink, func(status opcua.StatusCode) {
		c.logger.WithField("status", status.String()).Warn("subscription's session faulted")
	})

	result := make(chan error, 1)
	sub.Create(c.Channel, func(status opcua.StatusCode, id opcua.SubscriptionId) {
		if status.IsBad() {
			result <- fmt.Errorf("CreateSubscription failed: %s", status)
			return
		}
		result <- nil
	})

	if err := <-result; err != nil {
		return nil, err
	}
	return sub, nil
}

// Close deletes session state and tears down the channel. Safe to
// call even if Connect/Create never completed.
func (c *Client) Close() error {
	c.Session.Delete()
	c.Session.Close()
	return c.Channel.Close()
}

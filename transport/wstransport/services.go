package wstransport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/go-opcua/asyncclient/pkg/asyncreq"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/transport"
)

// decode unmarshals f.Body into out, or reports a transport-level
// error if f is the zero frame sent to every pending callback when
// Close flushes them (spec.md §4.1: the handler is NOT invoked on
// synchronous submission failure, but IS invoked with a
// transport-error code when the channel is torn down with requests
// outstanding).
func decode(f frame, out interface{}) error {
	if f.Kind == "" {
		return fmt.Errorf("wstransport: connection closed with request outstanding")
	}
	return json.Unmarshal(f.Body, out)
}

func (t *Transport) BeginCreateSession(h transport.Handle, req *opcua.CreateSessionRequest, cb func(*opcua.CreateSessionResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: CreateSession submitted")
	if err := t.send(kindCreateSessionReq, id, req); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.CreateSessionResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

func (t *Transport) BeginActivateSession(h transport.Handle, req *opcua.ActivateSessionRequest, cb func(*opcua.ActivateSessionResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: ActivateSession submitted")
	if err := t.send(kindActivateReq, id, req); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.ActivateSessionResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

type browseWireRequest struct {
	Header       opcua.RequestHeader
	Descriptions []opcua.BrowseDescription
}

func (t *Transport) BeginBrowse(h transport.Handle, header opcua.RequestHeader, descriptions []opcua.BrowseDescription, cb func(*opcua.BrowseResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: Browse submitted")
	if err := t.send(kindBrowseReq, id, browseWireRequest{Header: header, Descriptions: descriptions}); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.BrowseResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

type readWireRequest struct {
	Header opcua.RequestHeader
	IDs    []opcua.ReadValueId
}

func (t *Transport) BeginRead(h transport.Handle, header opcua.RequestHeader, ids []opcua.ReadValueId, cb func(*opcua.ReadResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: Read submitted")
	if err := t.send(kindReadReq, id, readWireRequest{Header: header, IDs: ids}); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.ReadResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

func (t *Transport) BeginPublish(h transport.Handle, req *opcua.PublishRequest, cb func(*opcua.PublishResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: Publish submitted")
	if err := t.send(kindPublishReq, id, req); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.PublishResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

func (t *Transport) BeginCreateSubscription(h transport.Handle, params opcua.SubscriptionParams, cb func(*opcua.CreateSubscriptionResponse, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: CreateSubscription submitted")
	if err := t.send(kindCreateSubReq, id, params); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp opcua.CreateSubscriptionResponse
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(&resp, nil)
	})
	return nil
}

type createItemsWireRequest struct {
	SubscriptionId opcua.SubscriptionId
	Items          []opcua.MonitoredItemCreateRequest
}

func (t *Transport) BeginCreateMonitoredItems(h transport.Handle, subID opcua.SubscriptionId, items []opcua.MonitoredItemCreateRequest, cb func([]opcua.MonitoredItemCreateResult, error)) error {
	areq := asyncreq.New(cb)
	id := areq.ID().String()
	t.logger.WithField("req_id", id).Debug("wstransport: CreateMonitoredItems submitted")
	if err := t.send(kindCreateItemsReq, id, createItemsWireRequest{SubscriptionId: subID, Items: items}); err != nil {
		return err
	}
	t.awaitReply(id, func(f frame) {
		var resp []opcua.MonitoredItemCreateResult
		if err := decode(f, &resp); err != nil {
			areq.Complete(nil, err)
			return
		}
		areq.Complete(resp, nil)
	})
	return nil
}

// BeginDeleteSubscription fires a DeleteSubscription frame without
// awaiting a reply, so there is no completion for an asyncreq.Request
// to carry — the id here is purely for wire correlation and logging.
func (t *Transport) BeginDeleteSubscription(h transport.Handle, subID opcua.SubscriptionId) error {
	id := uuid.NewString()
	t.logger.WithField("req_id", id).Debug("wstransport: DeleteSubscription submitted")
	return t.send(kindDeleteSubReq, id, subID)
}

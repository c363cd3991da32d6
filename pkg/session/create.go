package session

import "github.com/go-opcua/asyncclient/pkg/opcua"

// commitCreate submits CreateSession. Reached either from Create
// (channel already up) or from onChannelStatusChanged (channel just
// came up while creation had been requested).
func (s *Session) commitCreate() {
	req := &opcua.CreateSessionRequest{
		ClientDescription:     s.params.ClientDescription,
		ServerURI:             s.params.ServerURI,
		EndpointURL:           s.params.EndpointURL,
		SessionName:           s.params.SessionName,
		ClientCertificate:     s.params.ClientCertificate,
		ClientNonce:           s.generateClientNonce(),
		RequestedTimeout:      s.params.RequestedTimeout,
		MaxResponseMessageSize: 0,
	}

	err := s.channel.BeginCreateSession(req, s.onCreateSessionResponse)
	if err != nil {
		s.onError(opcua.BadCommunicationError)
		s.notifyCreateCallback(opcua.BadCommunicationError)
	}
}

func (s *Session) onCreateSessionResponse(resp *opcua.CreateSessionResponse, err error) {
	if err != nil {
		s.onError(opcua.BadCommunicationError)
		s.notifyCreateCallback(opcua.BadCommunicationError)
		return
	}
	if resp.ServiceResult.IsBad() {
		s.onError(resp.ServiceResult)
		s.notifyCreateCallback(resp.ServiceResult)
		return
	}

	s.mu.Lock()
	s.created = true
	s.info.SessionId = resp.SessionId
	s.info.AuthenticationToken = resp.AuthenticationToken
	s.info.RevisedTimeout = resp.RevisedSessionTimeout
	s.info.ServerNonce = resp.ServerNonce
	s.info.ServerCertificate = resp.ServerCertificate
	s.mu.Unlock()

	s.activate()
}

func (s *Session) activate() {
	req := &opcua.ActivateSessionRequest{Header: s.buildRequestHeader()}

	err := s.channel.BeginActivateSession(req, s.onActivateSessionResponse)
	if err != nil {
		s.onError(opcua.BadCommunicationError)
		s.notifyCreateCallback(opcua.BadCommunicationError)
	}
}

func (s *Session) onActivateSessionResponse(resp *opcua.ActivateSessionResponse, err error) {
	if err != nil {
		s.onError(opcua.BadCommunicationError)
		s.notifyCreateCallback(opcua.BadCommunicationError)
		return
	}
	if resp.ServiceResult.IsBad() {
		s.onError(resp.ServiceResult)
		s.notifyCreateCallback(resp.ServiceResult)
		return
	}

	s.mu.Lock()
	s.info.ServerNonce = resp.ServerNonce
	s.mu.Unlock()

	s.setStatus(opcua.Good)
	s.notifyCreateCallback(opcua.Good)
}

// notifyCreateCallback invokes the single Create callback on the
// terminal outcome of the very first Create attempt only — reconnect
// re-activations also flow through onActivateSessionResponse but
// should not re-fire a callback the caller already consumed. We track
// that by clearing the callback after first use.
func (s *Session) notifyCreateCallback(status opcua.StatusCode) {
	s.mu.Lock()
	cb := s.createCallback
	s.createCallback = nil
	s.mu.Unlock()

	if cb != nil {
		cb(status)
	}
}

// Browse submits a Browse request. The callback receives the service
// status and, on success, one result per input description in the
// same order; on a bad service status results is empty. A bad
// outcome here does not fault the Session (spec.md §7) — the caller
// decides what to do with a bad Browse.
func (s *Session) Browse(descriptions []opcua.BrowseDescription, cb BrowseCallback) {
	header := s.buildRequestHeader()
	err := s.channel.BeginBrowse(header, descriptions, func(resp *opcua.BrowseResponse, err error) {
		if err != nil {
			cb(opcua.BadCommunicationError, nil)
			return
		}
		if resp.ServiceResult.IsBad() {
			cb(resp.ServiceResult, nil)
			return
		}
		cb(resp.ServiceResult, resp.Results)
	})
	if err != nil {
		cb(opcua.BadCommunicationError, nil)
	}
}

// Read submits a Read request, symmetric to Browse.
func (s *Session) Read(ids []opcua.ReadValueId, cb ReadCallback) {
	header := s.buildRequestHeader()
	err := s.channel.BeginRead(header, ids, func(resp *opcua.ReadResponse, err error) {
		if err != nil {
			cb(opcua.BadCommunicationError, nil)
			return
		}
		if resp.ServiceResult.IsBad() {
			cb(resp.ServiceResult, nil)
			return
		}
		cb(resp.ServiceResult, resp.Results)
	})
	if err != nil {
		cb(opcua.BadCommunicationError, nil)
	}
}

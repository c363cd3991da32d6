// Package asyncreq implements the one-shot continuation object
// described in spec.md §4.1: handed to the transport alongside a
// request payload, invoked exactly once with either a decoded
// response or a transport-level error.
package asyncreq

import "github.com/google/uuid"

// Handler is called exactly once by the transport, either with a
// populated response and a nil error, or a zero response and a
// non-nil error. Ownership of resp transfers to the handler for the
// duration of the call.
type Handler[Resp any] func(resp Resp, err error)

// Request is the generic AsyncRequest<Resp>. It carries a correlation
// ID, used in log lines and, by transports that match replies to
// requests on the wire, as that wire correlation id.
type Request[Resp any] struct {
	id      uuid.UUID
	handler Handler[Resp]
}

// New constructs a Request that will invoke handler on Complete.
func New[Resp any](handler Handler[Resp]) *Request[Resp] {
	return &Request[Resp]{id: uuid.New(), handler: handler}
}

// ID returns the request's correlation ID.
func (r *Request[Resp]) ID() uuid.UUID { return r.id }

// Complete invokes the handler exactly once. Calling it more than
// once is a misuse of the transport contract; the second call is a
// silent no-op rather than a panic, since the transport boundary is
// outside this package's control.
func (r *Request[Resp]) Complete(resp Resp, err error) {
	if r == nil || r.handler == nil {
		return
	}
	handler := r.handler
	r.handler = nil
	handler(resp, err)
}

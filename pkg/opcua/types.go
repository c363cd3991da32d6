package opcua

import "time"

// SubscriptionId is the server-assigned identifier for a Subscription,
// valid only after a successful CreateSubscription response.
type SubscriptionId uint32

// SequenceNumber is the per-subscription, monotonically increasing
// identifier used for Publish acknowledgements.
type SequenceNumber uint32

// ClientHandle is a client-assigned identifier for a MonitoredItem,
// used to correlate DataChangeNotification entries back to the item
// that produced them.
type ClientHandle uint32

// RequestHeader is attached to every non-CreateSession request. Built
// fresh per request by the Session's buildRequestHeader (spec.md §4.3).
type RequestHeader struct {
	AuthenticationToken NodeId
	Timestamp           time.Time
	TimeoutHint         time.Duration
}

// ---- CreateSession ----

type CreateSessionRequest struct {
	ClientDescription    string
	ServerURI             string
	EndpointURL           string
	SessionName           string
	ClientNonce           ByteString
	ClientCertificate     ByteString
	RequestedTimeout      time.Duration
	MaxResponseMessageSize uint32
}

type CreateSessionResponse struct {
	ServiceResult        StatusCode
	SessionId            NodeId
	AuthenticationToken  NodeId
	RevisedSessionTimeout time.Duration
	ServerNonce          ByteString
	ServerCertificate    ByteString
}

// ---- ActivateSession ----

type ActivateSessionRequest struct {
	Header RequestHeader
}

type ActivateSessionResponse struct {
	ServiceResult StatusCode
	ServerNonce   ByteString
}

// ---- Browse ----

type BrowseDescription struct {
	NodeToBrowse NodeId
}

type BrowseResult struct {
	StatusCode StatusCode
	References []ReferenceDescription
}

type ReferenceDescription struct {
	NodeId      NodeId
	DisplayName string
}

// BrowseResponse mirrors the ServiceResult + per-node Results shape
// every OPC UA service response carries (response header status is
// independent of any per-item status).
type BrowseResponse struct {
	ServiceResult StatusCode
	Results       []BrowseResult
}

// ---- Read ----

type ReadValueId struct {
	NodeId      NodeId
	AttributeId uint32
}

type DataValue struct {
	StatusCode StatusCode
	Value      interface{}
	SourceTime time.Time
}

// ReadResponse is the Read analogue of BrowseResponse.
type ReadResponse struct {
	ServiceResult StatusCode
	Results       []DataValue
}

// ---- Publish ----

// SubscriptionAcknowledgement is one (subId, seq) ack entry sent on an
// outbound PublishRequest.
type SubscriptionAcknowledgement struct {
	SubscriptionId SubscriptionId
	SequenceNumber SequenceNumber
}

type PublishRequest struct {
	Header              RequestHeader
	Acknowledgements    []SubscriptionAcknowledgement
}

// NotificationMessage carries zero or more notification payloads for
// one subscription under one sequence number. An empty
// NotificationData slice means this response was a keepalive.
type NotificationMessage struct {
	SequenceNumber   SequenceNumber
	NotificationData []DataChangeNotification
}

// DataChangeNotification is the payload delivered to a subscription's
// notification sink.
type DataChangeNotification struct {
	ClientHandle ClientHandle
	Value        DataValue
}

type PublishResponse struct {
	ServiceResult            StatusCode
	SubscriptionId           SubscriptionId
	AvailableSequenceNumbers []SequenceNumber
	MoreNotifications        bool
	NotificationMessage      NotificationMessage
	Results                  []StatusCode
}

// ---- Subscription / MonitoredItem service params ----

type SubscriptionParams struct {
	PublishingInterval         time.Duration
	LifetimeCount              uint32
	MaxKeepAliveCount          uint32
	MaxNotificationsPerPublish uint32
	PublishingEnabled          bool
	Priority                   uint8
}

type CreateSubscriptionResponse struct {
	ServiceResult  StatusCode
	SubscriptionId SubscriptionId
}

type MonitoringMode uint8

const (
	MonitoringDisabled MonitoringMode = iota
	MonitoringSampling
	MonitoringReporting
)

type MonitoringParameters struct {
	ClientHandle     ClientHandle
	SamplingInterval time.Duration
	QueueSize        uint32
	DiscardOldest    bool
}

type MonitoredItemCreateRequest struct {
	ItemToMonitor     ReadValueId
	MonitoringMode    MonitoringMode
	RequestedParams   MonitoringParameters
}

type MonitoredItemCreateResult struct {
	StatusCode      StatusCode
	MonitoredItemId uint32
}

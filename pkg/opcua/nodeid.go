package opcua

import (
	"fmt"
	"reflect"
)

// IdentifierType selects which field of NodeId.Value is meaningful.
type IdentifierType uint8

const (
	IdentifierNumeric IdentifierType = iota
	IdentifierString
	IdentifierGUID
	IdentifierOpaque
)

// NodeId is the composite identifier described in spec.md's GLOSSARY:
// (namespace_index, identifier_type, value). Value holds a uint32,
// string, [16]byte GUID, or []byte opaque identifier depending on
// Type; callers are expected to know which from context, the same
// contract the C++ NodeId union gives its readers.
type NodeId struct {
	NamespaceIndex uint16
	Type           IdentifierType
	Value          interface{}
}

// NumericNodeId builds a NodeId with a numeric identifier, mirroring
// the opcuapp NodeId(NumericNodeId, NamespaceIndex) constructor.
func NumericNodeId(id uint32, namespaceIndex uint16) NodeId {
	return NodeId{NamespaceIndex: namespaceIndex, Type: IdentifierNumeric, Value: id}
}

// StringNodeId builds a NodeId with a string identifier.
func StringNodeId(id string, namespaceIndex uint16) NodeId {
	return NodeId{NamespaceIndex: namespaceIndex, Type: IdentifierString, Value: id}
}

// IsNull reports whether the NodeId carries no identifier at all.
func (n NodeId) IsNull() bool {
	return n.Type == IdentifierNumeric && n.NamespaceIndex == 0 && n.Value == nil
}

// Equal compares two NodeIds the way the source's operator< pair does
// for map-key purposes: same namespace, same type, same value.
func (n NodeId) Equal(other NodeId) bool {
	return n.NamespaceIndex == other.NamespaceIndex &&
		n.Type == other.Type &&
		reflect.DeepEqual(n.Value, other.Value)
}

func (n NodeId) String() string {
	switch n.Type {
	case IdentifierNumeric:
		return fmt.Sprintf("ns=%d;i=%v", n.NamespaceIndex, n.Value)
	case IdentifierString:
		return fmt.Sprintf("ns=%d;s=%v", n.NamespaceIndex, n.Value)
	case IdentifierGUID:
		return fmt.Sprintf("ns=%d;g=%v", n.NamespaceIndex, n.Value)
	default:
		return fmt.Sprintf("ns=%d;b=%v", n.NamespaceIndex, n.Value)
	}
}

// ByteString is an owned byte blob — server nonces, certificates,
// opaque identifiers. Kept as a named type (rather than a bare
// []byte) so handlers that move server_nonce/server_certificate out
// of a response into long-lived session state read the same way the
// source's ByteString ownership transfer does.
type ByteString []byte

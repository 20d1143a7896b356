package types

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"unicode/utf8"
)

// json is a drop-in, allocation-lighter substitute for encoding/json kept
// API-compatible via jsoniter's standard-library config.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Package type ranges, partitioned per the wire format.
const (
	// Internal protocol types: 1-99.
	TypeTimeDelay     uint16 = 1
	TypeTimeSync      uint16 = 2
	TypeNodeSyncReq   uint16 = 3
	TypeNodeSyncReply uint16 = 4
	// TypeHello is the link handshake: the first frame each side sends on a
	// freshly accepted or dialed connection, carrying the sender's NodeId
	// and initial subtree so the Connection Registry can register the link
	// (§4.B).
	TypeHello uint16 = 5

	// User/extension types: 100-599. Reserved for applications built on
	// top of this package; the core never registers a handler in this
	// range.
	UserTypeRangeStart uint16 = 100
	UserTypeRangeEnd   uint16 = 599

	// Bridge subsystem: 610-619.
	TypeBridgeStatus      uint16 = 610
	TypeBridgeElection    uint16 = 611
	TypeBridgeTakeover    uint16 = 612
	TypeBridgeCoordinate  uint16 = 613
	TypeNTPTimeSync       uint16 = 614
)

// ErrDecode is returned when a frame cannot be decoded into a Variant, or
// when it decodes but violates the envelope contract (non-UTF-8 content, or
// a type/message_type mismatch).
// An unknown type is not a decode error; dispatch reports it separately.
var ErrDecode = errors.New("malformed or undecodable variant")

// Variant is the tagged, serialized packet exchanged over the wire. Body is
// kept as raw bytes so the envelope can be decoded without already knowing
// the concrete payload type; package-type handlers re-decode Body into
// their specific struct.
type Variant struct {
	Type        uint16          `json:"type"`
	From        NodeId          `json:"from"`
	Dest        NodeId          `json:"dest,omitempty"`
	Routing     RoutingMode     `json:"routing"`
	Body        jsoniter.RawMessage `json:"body"`
	// MessageType mirrors Type, kept for backward compatibility with the
	// wire format of the original protocol.
	MessageType uint16 `json:"message_type"`
}

// NewVariant builds a Variant whose body is the JSON encoding of payload,
// keeping MessageType and Type in sync.
func NewVariant(typ uint16, from, dest NodeId, routing RoutingMode, payload interface{}) (Variant, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Variant{}, errors.Wrap(ErrDecode, err.Error())
	}
	return Variant{
		Type:        typ,
		From:        from,
		Dest:        dest,
		Routing:     routing,
		Body:        body,
		MessageType: typ,
	}, nil
}

// Decode parses raw bytes into a Variant envelope, validating that every
// string field role decodes as UTF-8 and that Type/MessageType agree when
// MessageType is present and non-zero.
func Decode(raw []byte) (Variant, error) {
	var v Variant
	if err := json.Unmarshal(raw, &v); err != nil {
		return Variant{}, errors.Wrap(ErrDecode, err.Error())
	}
	if !utf8.Valid(raw) {
		return Variant{}, errors.Wrap(ErrDecode, "non-UTF-8 frame")
	}
	if v.MessageType != 0 && v.MessageType != v.Type {
		return Variant{}, errors.Wrap(ErrDecode, "type/message_type mismatch")
	}
	if v.MessageType == 0 {
		v.MessageType = v.Type
	}
	return v, nil
}

// Encode serializes the Variant envelope to bytes for the Framed Transport.
func (v Variant) Encode() ([]byte, error) {
	if v.MessageType == 0 {
		v.MessageType = v.Type
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	return b, nil
}

// Unmarshal decodes the Variant's Body into dst.
func (v Variant) Unmarshal(dst interface{}) error {
	if len(v.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(v.Body, dst); err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	return nil
}

package service

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"coprocfleet/domain"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedEnvelope is returned by DecodeLogEnvelope for payloads that are not a log message.
var ErrMalformedEnvelope = errors.New("malformed log envelope")

// Field numbers of the LogMessage protobuf published by nodes.
const (
	logFieldMessage  protowire.Number = 1
	logFieldNodeName protowire.Number = 2
	logFieldPrefix   protowire.Number = 3
)

// EncodeLogEnvelope marshals e as a LogMessage. Empty fields are omitted, as proto3 does.
func EncodeLogEnvelope(e domain.LogEnvelope) []byte {
	var b []byte
	b = appendString(b, logFieldMessage, e.Message)
	b = appendString(b, logFieldNodeName, e.NodeName)
	b = appendString(b, logFieldPrefix, e.Prefix)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// DecodeLogEnvelope unmarshals a LogMessage. Unknown fields are skipped; a known field with the
// wrong wire type, a truncated payload or invalid UTF-8 yields ErrMalformedEnvelope.
func DecodeLogEnvelope(payload []byte) (domain.LogEnvelope, error) {
	var e domain.LogEnvelope
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return domain.LogEnvelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		payload = payload[n:]

		var dst *string
		switch num {
		case logFieldMessage:
			dst = &e.Message
		case logFieldNodeName:
			dst = &e.NodeName
		case logFieldPrefix:
			dst = &e.Prefix
		}
		if dst == nil {
			n = protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return domain.LogEnvelope{}, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
			payload = payload[n:]
			continue
		}
		if typ != protowire.BytesType {
			return domain.LogEnvelope{}, fmt.Errorf("%w: field %d has wire type %d", ErrMalformedEnvelope, num, typ)
		}
		v, n := protowire.ConsumeString(payload)
		if n < 0 {
			return domain.LogEnvelope{}, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
		}
		if !utf8.ValidString(v) {
			return domain.LogEnvelope{}, fmt.Errorf("%w: field %d is not valid UTF-8", ErrMalformedEnvelope, num)
		}
		*dst = v
		payload = payload[n:]
	}
	return e, nil
}

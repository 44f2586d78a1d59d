// Package wireattr decodes the length-prefixed binary headers used to
// carry distinguishedName and lifecycleState values across the control
// socket, and classifies the step that follows an attribute-program
// cursor.
package wireattr

import (
	"github.com/orvelte/lifecycled/fault"
)

// DecodeHeader reads a DER-like tag+length header from buf and returns
// the payload slice it describes. The tag byte itself is skipped: only
// its length form matters. A length below 0x80 is the short form and
// is read directly from the byte that follows the tag; 0x80 or above
// selects the long form, whose low seven bits give the number of
// following length bytes (1 or 2 are the only forms this wire format
// uses).
func DecodeHeader(buf []byte) (payload []byte, err error) {
	if len(buf) < 2 {
		return nil, fault.ErrMalformedHeader
	}
	lenByte := buf[1]
	rest := buf[2:]

	if lenByte&0x80 == 0 {
		n := int(lenByte)
		if len(rest) < n {
			return nil, fault.ErrMalformedHeader
		}
		return rest[:n], nil
	}

	lenlen := int(lenByte & 0x7f)
	if lenlen < 1 || lenlen > 2 {
		return nil, fault.ErrMalformedHeader
	}
	if len(rest) < lenlen {
		return nil, fault.ErrMalformedHeader
	}

	n := int(rest[0])
	rest = rest[1:]
	if lenlen == 2 {
		if len(rest) < 1 {
			return nil, fault.ErrMalformedHeader
		}
		n = (n << 8) | int(rest[0])
		rest = rest[1:]
	}

	if len(rest) < n {
		return nil, fault.ErrMalformedHeader
	}
	return rest[:n], nil
}

// EncodeHeader is the inverse of DecodeHeader: it prepends a tag byte
// (always 0x04, an OCTET STRING tag — the decoder ignores its value)
// and a short- or long-form length to payload.
func EncodeHeader(payload []byte) []byte {
	n := len(payload)
	switch {
	case n < 0x80:
		out := make([]byte, 0, n+2)
		out = append(out, 0x04, byte(n))
		return append(out, payload...)
	case n <= 0xff:
		out := make([]byte, 0, n+3)
		out = append(out, 0x04, 0x81, byte(n))
		return append(out, payload...)
	default:
		out := make([]byte, 0, n+4)
		out = append(out, 0x04, 0x82, byte(n>>8), byte(n))
		return append(out, payload...)
	}
}

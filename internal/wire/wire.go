// Package wire defines the datagram formats exchanged between the prober
// and the responder.
//
// Both datagram shapes are human-readable ASCII so captures stay easy to
// eyeball with tcpdump. The probe tag doubles as a traffic marker: anything
// on the group/port that does not carry it is foreign traffic, which is an
// expected condition rather than a protocol error.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

const (
	// ProbeTag marks probe datagrams emitted by the prober.
	ProbeTag = "very important data"

	// AckTag marks acknowledgement datagrams emitted by the responder.
	AckTag = "ack"

	// Separator joins the tag and the sequence token.
	Separator = " - "

	// MaxProbeSize is the read buffer size for inbound probes.
	MaxProbeSize = 1024

	// MaxAckSize is the read buffer size for inbound acks. 16 bytes covers
	// the ack tag plus any realistic sequence number.
	MaxAckSize = 16
)

// ErrForeign indicates a datagram that does not conform to the probe
// format. It signals unrelated traffic on the group/port, not a bug.
var ErrForeign = errors.New("wire: not a probe datagram")

// ErrBadAck indicates a datagram that does not conform to the ack format.
var ErrBadAck = errors.New("wire: not an ack datagram")

// EncodeProbe renders the probe datagram for the given sequence number.
func EncodeProbe(seq uint64) []byte {
	return []byte(ProbeTag + Separator + strconv.FormatUint(seq, 10))
}

// EncodeAck renders the ack datagram for the given sequence number.
func EncodeAck(seq uint64) []byte {
	return []byte(AckTag + Separator + strconv.FormatUint(seq, 10))
}

// DecodeProbe parses an inbound datagram as a probe and returns its
// sequence number. Any malformed input yields ErrForeign (wrapped with
// detail); DecodeProbe never panics on arbitrary bytes.
func DecodeProbe(b []byte) (uint64, error) {
	tag, token, err := split(b)
	if err != nil {
		return 0, err
	}
	if tag != ProbeTag {
		return 0, fmt.Errorf("%w: unexpected tag %q", ErrForeign, tag)
	}
	seq, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad sequence token %q", ErrForeign, token)
	}
	return seq, nil
}

// DecodeAck parses an inbound datagram as an ack and returns the sequence
// number it answers. Only strict correlation inspects ack payloads; loose
// mode treats any datagram as a liveness signal.
func DecodeAck(b []byte) (uint64, error) {
	tag, token, err := split(b)
	if err != nil {
		return 0, ErrBadAck
	}
	if tag != AckTag {
		return 0, fmt.Errorf("%w: unexpected tag %q", ErrBadAck, tag)
	}
	seq, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad sequence token %q", ErrBadAck, token)
	}
	return seq, nil
}

// split separates a datagram into its tag and sequence token.
func split(b []byte) (tag, token string, err error) {
	if !utf8.Valid(b) {
		return "", "", fmt.Errorf("%w: payload is not valid UTF-8", ErrForeign)
	}
	sep := []byte(Separator)
	idx := bytes.Index(b, sep)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: missing separator", ErrForeign)
	}
	tag = string(b[:idx])
	token = string(bytes.TrimSpace(b[idx+len(sep):]))
	if token == "" {
		return "", "", fmt.Errorf("%w: empty sequence token", ErrForeign)
	}
	return tag, token, nil
}

package wire

import (
	"errors"
	"testing"
)

func TestEncodeProbe(t *testing.T) {
	tests := []struct {
		seq  uint64
		want string
	}{
		{0, "very important data - 0"},
		{7, "very important data - 7"},
		{123456, "very important data - 123456"},
	}

	for _, tc := range tests {
		if got := string(EncodeProbe(tc.seq)); got != tc.want {
			t.Errorf("EncodeProbe(%d) = %q, want %q", tc.seq, got, tc.want)
		}
	}
}

func TestEncodeAck(t *testing.T) {
	if got := string(EncodeAck(42)); got != "ack - 42" {
		t.Errorf("EncodeAck(42) = %q, want %q", got, "ack - 42")
	}
	if len(EncodeAck(0)) > MaxAckSize {
		t.Errorf("ack for seq 0 exceeds MaxAckSize")
	}
}

func TestDecodeProbe(t *testing.T) {
	seq, err := DecodeProbe([]byte("very important data - 7"))
	if err != nil {
		t.Fatalf("DecodeProbe returned error: %v", err)
	}
	if seq != 7 {
		t.Errorf("seq = %d, want 7", seq)
	}
}

func TestDecodeProbeRoundTrip(t *testing.T) {
	for _, want := range []uint64{0, 1, 999, 1<<63 - 1} {
		got, err := DecodeProbe(EncodeProbe(want))
		if err != nil {
			t.Fatalf("DecodeProbe(EncodeProbe(%d)) error: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip: got %d, want %d", got, want)
		}
	}
}

func TestDecodeProbeForeignTraffic(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"no separator", []byte("very important data")},
		{"wrong tag", []byte("something else - 3")},
		{"ack payload", []byte("ack - 3")},
		{"non-numeric token", []byte("very important data - abc")},
		{"negative token", []byte("very important data - -1")},
		{"empty token", []byte("very important data - ")},
		{"binary garbage", []byte{0xff, 0xfe, 0x00, 0x01}},
		{"mdns-ish noise", []byte("\x00\x00\x84\x00\x00\x00\x00\x01")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeProbe(tc.payload)
			if err == nil {
				t.Fatalf("DecodeProbe(%q) succeeded, want decode failure", tc.payload)
			}
			if !errors.Is(err, ErrForeign) {
				t.Errorf("error = %v, want ErrForeign", err)
			}
		})
	}
}

func TestDecodeAck(t *testing.T) {
	seq, err := DecodeAck([]byte("ack - 5"))
	if err != nil {
		t.Fatalf("DecodeAck returned error: %v", err)
	}
	if seq != 5 {
		t.Errorf("seq = %d, want 5", seq)
	}
}

func TestDecodeAckRejectsNonAcks(t *testing.T) {
	tests := [][]byte{
		[]byte("very important data - 5"),
		[]byte("ack-5"),
		[]byte("ack - x"),
		[]byte(""),
		{0xc3, 0x28}, // invalid UTF-8
	}

	for _, payload := range tests {
		if _, err := DecodeAck(payload); !errors.Is(err, ErrBadAck) {
			t.Errorf("DecodeAck(%q) error = %v, want ErrBadAck", payload, err)
		}
	}
}

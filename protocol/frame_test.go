package protocol

import "testing"

func TestEventFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		eventType, oid         uint8
		clock, value1, value2 uint32
	}{
		{0, 0, 0, 0, 0},
		{1, 5, 123456, 789, 12},
		{255, 255, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
	}

	for _, tc := range testCases {
		frame := EncodeEventFrame(tc.eventType, tc.oid, tc.clock, tc.value1, tc.value2)

		et, oid, clock, v1, v2, err := DecodeEventFrame(frame)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if et != tc.eventType || oid != tc.oid || clock != tc.clock || v1 != tc.value1 || v2 != tc.value2 {
			t.Errorf("round trip mismatch: got (%d,%d,%d,%d,%d), want (%d,%d,%d,%d,%d)",
				et, oid, clock, v1, v2, tc.eventType, tc.oid, tc.clock, tc.value1, tc.value2)
		}
	}
}

func TestEventFrameCorruption(t *testing.T) {
	frame := EncodeEventFrame(1, 2, 3, 4, 5)
	frame[0] ^= 0xFF

	_, _, _, _, _, err := DecodeEventFrame(frame)
	if err != ErrInvalidVLQ {
		t.Errorf("expected ErrInvalidVLQ for corrupted frame, got %v", err)
	}
}

func TestEventFrameTooShort(t *testing.T) {
	_, _, _, _, _, err := DecodeEventFrame([]byte{0x01})
	if err != ErrBufferTooSmall {
		t.Errorf("expected ErrBufferTooSmall, got %v", err)
	}
}

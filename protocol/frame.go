package protocol

// EncodeEventFrame packs a single core.TimingEvent-shaped diagnostic record
// into a compact, CRC-checked frame the host tooling can log or replay.
// Layout: VLQ(eventType) VLQ(oid) VLQ(clock) VLQ(value1) VLQ(value2) CRC16(2 bytes, little-endian).
func EncodeEventFrame(eventType, oid uint8, clock, value1, value2 uint32) []byte {
	var buf []byte
	buf = EncodeVLQUint(buf, uint32(eventType))
	buf = EncodeVLQUint(buf, uint32(oid))
	buf = EncodeVLQUint(buf, clock)
	buf = EncodeVLQUint(buf, value1)
	buf = EncodeVLQUint(buf, value2)

	crc := CRC16(buf)
	return append(buf, byte(crc), byte(crc>>8))
}

// DecodeEventFrame reverses EncodeEventFrame, verifying the trailing CRC16.
func DecodeEventFrame(frame []byte) (eventType, oid uint8, clock, value1, value2 uint32, err error) {
	if len(frame) < 2 {
		return 0, 0, 0, 0, 0, ErrBufferTooSmall
	}
	body := frame[:len(frame)-2]
	gotCRC := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if CRC16(body) != gotCRC {
		return 0, 0, 0, 0, 0, ErrInvalidVLQ
	}

	data := body
	et, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	o, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	c, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	v1, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	v2, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	return uint8(et), uint8(o), c, v1, v2, nil
}

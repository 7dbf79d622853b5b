// Package protocol implements the compact binary encoding used to ship
// diagnostic event frames from the core's timing ring (see core.RecordTiming)
// to the host tooling. It does not implement a command/response wire
// protocol: the core talks G-code text lines to its caller, not a binary
// dictionary handshake, so only the encoding primitives survive here.
package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt encodes a signed integer to VLQ format, appending to buf.
func EncodeVLQInt(buf []byte, v int32) []byte {
	if !(-(1 << 26) <= v && v < (3 << 26)) {
		buf = append(buf, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1 << 19) <= v && v < (3 << 19)) {
		buf = append(buf, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1 << 12) <= v && v < (3 << 12)) {
		buf = append(buf, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1 << 5) <= v && v < (3 << 5)) {
		buf = append(buf, byte((v>>7)&0x7F)|0x80)
	}
	buf = append(buf, byte(v&0x7F))
	return buf
}

// EncodeVLQUint encodes an unsigned integer to VLQ format, appending to buf.
func EncodeVLQUint(buf []byte, v uint32) []byte {
	return EncodeVLQInt(buf, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F)
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}

// EncodeVLQBytes encodes a byte slice with a VLQ length prefix.
func EncodeVLQBytes(buf []byte, data []byte) []byte {
	buf = EncodeVLQUint(buf, uint32(len(data)))
	return append(buf, data...)
}

// DecodeVLQBytes decodes a length-prefixed byte slice.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	length, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if len(*data) < int(length) {
		return nil, ErrBufferTooSmall
	}
	result := (*data)[:length]
	*data = (*data)[length:]
	return result, nil
}

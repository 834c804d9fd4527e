// osc.go
//
// Minimal OSC 1.0 message encoding for driving a remote visual-presentation
// system (Resolume-style) over UDP. Only the single-argument messages the
// appliance needs are supported: int32, float32 and string.
package osc

import (
	"encoding/binary"
	"math"

	"avnotify/errcode"
)

// EncodeString encodes s as its UTF-8 bytes plus a trailing NUL, zero-padded
// to a multiple of four bytes.
func EncodeString(s string) []byte {
	n := len(s) + 1 // content + NUL
	padded := (n + 3) &^ 3
	b := make([]byte, padded)
	copy(b, s)
	return b
}

func encodeInt32(i int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(i))
	return b[:]
}

func encodeFloat32(f float32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
	return b[:]
}

// Encode builds one OSC message: encoded address, encoded type-tag string,
// encoded argument. Unsupported argument types are an UnsupportedArgument
// error, never a silent drop.
func Encode(address string, arg any) ([]byte, error) {
	msg := EncodeString(address)
	switch v := arg.(type) {
	case int:
		msg = append(msg, EncodeString(",i")...)
		msg = append(msg, encodeInt32(int32(v))...)
	case int32:
		msg = append(msg, EncodeString(",i")...)
		msg = append(msg, encodeInt32(v)...)
	case float32:
		msg = append(msg, EncodeString(",f")...)
		msg = append(msg, encodeFloat32(v)...)
	case float64:
		msg = append(msg, EncodeString(",f")...)
		msg = append(msg, encodeFloat32(float32(v))...)
	case string:
		msg = append(msg, EncodeString(",s")...)
		msg = append(msg, EncodeString(v)...)
	default:
		return nil, &errcode.E{C: errcode.UnsupportedArgument, Op: "osc.Encode"}
	}
	return msg, nil
}

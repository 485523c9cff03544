// Package codec transforms message bodies before they are persisted.
// The default transform is base64: reversible, readable by any client
// that knows the scheme, and not a confidentiality mechanism. A real
// cipher can be substituted without touching the relay logic.
package codec

import "encoding/base64"

// Codec encodes message bodies for storage and decodes them for
// display.
type Codec interface {
	Encode(plain string) ([]byte, error)
	Decode(encoded []byte) (string, error)
}

// Base64Codec implements Codec using standard base64. Decode falls back
// to the raw input when it is not valid base64, so plain-text messages
// written before any encoding still render.
type Base64Codec struct{}

// NewBase64Codec creates the default codec.
func NewBase64Codec() *Base64Codec {
	return &Base64Codec{}
}

// Encode returns the base64 form of plain.
func (c *Base64Codec) Encode(plain string) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString([]byte(plain))), nil
}

// Decode returns the decoded form of encoded, or the input itself when
// it is not valid base64.
func (c *Base64Codec) Decode(encoded []byte) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return string(encoded), nil
	}
	return string(decoded), nil
}

// PlainCodec implements Codec as the identity transform.
type PlainCodec struct{}

// NewPlainCodec creates a pass-through codec.
func NewPlainCodec() *PlainCodec {
	return &PlainCodec{}
}

// Encode returns plain unchanged.
func (c *PlainCodec) Encode(plain string) ([]byte, error) {
	return []byte(plain), nil
}

// Decode returns encoded unchanged.
func (c *PlainCodec) Decode(encoded []byte) (string, error) {
	return string(encoded), nil
}

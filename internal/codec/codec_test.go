package codec

import "testing"

func TestBase64RoundTrip(t *testing.T) {
	c := NewBase64Codec()

	encoded, err := c.Encode("hello, room")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(encoded) == "hello, room" {
		t.Error("encoded form should differ from the plain text")
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != "hello, room" {
		t.Errorf("got %q, want %q", decoded, "hello, room")
	}
}

func TestBase64DecodeFallback(t *testing.T) {
	c := NewBase64Codec()

	// Content written before any encoding was applied must still
	// render as-is.
	decoded, err := c.Decode([]byte("not valid base64 !!!"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != "not valid base64 !!!" {
		t.Errorf("got %q, want the raw input back", decoded)
	}
}

func TestPlainCodec(t *testing.T) {
	c := NewPlainCodec()

	encoded, err := c.Encode("text")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != "text" {
		t.Errorf("got %q, want %q", decoded, "text")
	}
}

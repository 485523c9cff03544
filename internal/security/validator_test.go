package security

import (
	"errors"
	"strings"
	"testing"
)

func newTestValidator() *InputValidator {
	return NewInputValidator(2, 50, 1000, 6)
}

func TestValidateUsername(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"valid", "alice", "alice", nil},
		{"trims whitespace", "  alice  ", "alice", nil},
		{"empty", "", "", ErrEmptyUsername},
		{"whitespace only", "   ", "", ErrEmptyUsername},
		{"too short", "a", "", ErrUsernameTooShort},
		{"minimum length", "ab", "ab", nil},
		{"too long", strings.Repeat("a", 51), "", ErrUsernameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateUsername(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"uppercases", "ab12cd", "AB12CD", nil},
		{"already uppercase", "XYZ789", "XYZ789", nil},
		{"trims", " ab12cd ", "AB12CD", nil},
		{"empty", "", "", ErrEmptyRoomCode},
		{"too short", "AB12", "", ErrInvalidRoomCode},
		{"too long", "AB12CD3", "", ErrInvalidRoomCode},
		{"bad characters", "AB-2CD", "", ErrInvalidRoomCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.NormalizeRoomCode(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	v := newTestValidator()

	if got, err := v.ValidateMessage("  hi there  "); err != nil || got != "hi there" {
		t.Errorf("got (%q, %v), want trimmed text", got, err)
	}

	// Blank input is not an error; sending ignores it.
	if got, err := v.ValidateMessage("   "); err != nil || got != "" {
		t.Errorf("got (%q, %v), want empty no-op", got, err)
	}

	if _, err := v.ValidateMessage(strings.Repeat("x", 1001)); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("got %v, want ErrMessageTooLong", err)
	}
}

package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors. They recover locally: the input is rejected, no
// state changes, and the session stays usable.
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooShort = errors.New("username is too short")
	ErrUsernameTooLong  = errors.New("username is too long")
	ErrEmptyRoomCode    = errors.New("room code cannot be empty")
	ErrInvalidRoomCode  = errors.New("room code must be letters and digits")
	ErrMessageTooLong   = errors.New("message is too long")
)

// InputValidator handles input validation and normalization.
type InputValidator struct {
	MinUsernameLength int
	MaxUsernameLength int
	MaxMessageLength  int
	RoomCodeLength    int
}

// NewInputValidator creates a validator with the given limits.
func NewInputValidator(minUsername, maxUsername, maxMessage, codeLength int) *InputValidator {
	return &InputValidator{
		MinUsernameLength: minUsername,
		MaxUsernameLength: maxUsername,
		MaxMessageLength:  maxMessage,
		RoomCodeLength:    codeLength,
	}
}

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// ValidateUsername trims and validates a display name.
func (v *InputValidator) ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return "", ErrEmptyUsername
	}
	if utf8.RuneCountInString(username) < v.MinUsernameLength {
		return "", fmt.Errorf("%w (minimum %d characters)", ErrUsernameTooShort, v.MinUsernameLength)
	}
	if utf8.RuneCountInString(username) > v.MaxUsernameLength {
		return "", fmt.Errorf("%w (maximum %d characters)", ErrUsernameTooLong, v.MaxUsernameLength)
	}

	return username, nil
}

// NormalizeRoomCode trims, uppercases, and validates a room code. Codes
// are case-insensitive, so all lookups go through this normalization.
func (v *InputValidator) NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if code == "" {
		return "", ErrEmptyRoomCode
	}
	if len(code) != v.RoomCodeLength || !roomCodePattern.MatchString(code) {
		return "", fmt.Errorf("%w (%d characters, A-Z and 0-9)", ErrInvalidRoomCode, v.RoomCodeLength)
	}

	return code, nil
}

// ValidateMessage trims and validates a message body. An empty body is
// returned as an empty string with no error; sending ignores it.
func (v *InputValidator) ValidateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", nil
	}
	if utf8.RuneCountInString(message) > v.MaxMessageLength {
		return "", fmt.Errorf("%w (maximum %d characters)", ErrMessageTooLong, v.MaxMessageLength)
	}
	return message, nil
}

// package validate
package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hilthontt/zeroroom/internal/domain"
)

// MaxRoomIDLength matches the limit the server puts on join_room payloads.
const MaxRoomIDLength = 256

// Validator is a function that validates a string and returns an error if invalid
type Validator func(value string) error

// Field labels the first failing validator's error with name.
func Field(name string, validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}
}

// Compose chains multiple validators, first error wins
func Compose(validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

// Required rejects empty and whitespace-only values.
func Required() Validator {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("this field is required")
		}
		return nil
	}
}

// MaxLength counts characters, not bytes.
func MaxLength(max int) Validator {
	return func(v string) error {
		if utf8.RuneCountInString(v) > max {
			return fmt.Errorf("must be no more than %d characters", max)
		}
		return nil
	}
}

// ValidUTF8 rejects byte sequences that JSON encoding would rewrite.
func ValidUTF8() Validator {
	return func(v string) error {
		if !utf8.ValidString(v) {
			return fmt.Errorf("must be valid UTF-8")
		}
		return nil
	}
}

// Printable rejects control characters such as newlines.
func Printable() Validator {
	return func(v string) error {
		for _, r := range v {
			if unicode.IsControl(r) {
				return fmt.Errorf("must not contain control characters")
			}
		}
		return nil
	}
}

var (
	roomID      = Field("room id", Required(), ValidUTF8(), MaxLength(MaxRoomIDLength), Printable())
	displayName = Field("display name", Required(), ValidUTF8())
)

// Join checks what a client is about to send in a join_room request. Every
// failure wraps domain.ErrInvalidInput.
func Join(room, username string) error {
	for _, check := range []struct {
		validator Validator
		value     string
	}{
		{validator: roomID, value: room},
		{validator: displayName, value: username},
	} {
		if err := check.validator(check.value); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return nil
}

package entity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	participantNameMin = 2
	participantNameMax = 50
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ParticipantName is a trimmed display name of 2 to 50 characters.
type ParticipantName struct {
	value string
}

func NewParticipantName(raw string) (ParticipantName, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ParticipantName{}, NewValidationError("name", "name required")
	}
	n := utf8.RuneCountInString(v)
	if n < participantNameMin {
		return ParticipantName{}, NewValidationError("name", "name too short")
	}
	if n > participantNameMax {
		return ParticipantName{}, NewValidationError("name", "name too long")
	}
	return ParticipantName{value: v}, nil
}

func (n ParticipantName) String() string { return n.value }

// EmailAddress is normalized (trimmed, lower-cased) before it is validated,
// so two addresses are equal with == iff their normalized forms match.
type EmailAddress struct {
	value string
}

func NewEmailAddress(raw string) (EmailAddress, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return EmailAddress{}, NewValidationError("email", "email required")
	}
	if !emailPattern.MatchString(v) {
		return EmailAddress{}, NewValidationError("email", "invalid email format")
	}
	return EmailAddress{value: v}, nil
}

func (e EmailAddress) String() string { return e.value }

func (e EmailAddress) IsZero() bool { return e.value == "" }

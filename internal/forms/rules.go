package forms

import (
	"fmt"
	"regexp"
)

// Rule checks one synchronous constraint; it returns a display message on
// violation and "" on pass. Immediate rules run on every keystroke, delayed
// rules run after the settle window and again on submit.
type Rule func(value string) string

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	emailPattern    = regexp.MustCompile(`^\S+@\S+$`)
)

func maxLength(limit int, label string) Rule {
	return func(value string) string {
		if len(value) > limit {
			return fmt.Sprintf("%s cannot exceed %d characters.", label, limit)
		}
		return ""
	}
}

func minLength(limit int, label string) Rule {
	return func(value string) string {
		if len(value) < limit {
			return fmt.Sprintf("%s must contain at least %d characters.", label, limit)
		}
		return ""
	}
}

func alphanumeric(label string) Rule {
	return func(value string) string {
		if value != "" && !usernamePattern.MatchString(value) {
			return fmt.Sprintf("%s can only contain numbers and letters.", label)
		}
		return ""
	}
}

func validEmail() Rule {
	return func(value string) string {
		if !emailPattern.MatchString(value) {
			return "You must provide a valid email address."
		}
		return ""
	}
}

func nonEmpty(message string) Rule {
	return func(value string) string {
		if len(value) == 0 {
			return message
		}
		return ""
	}
}

package forms

import (
	"context"
	"errors"
	"sync"

	"github.com/platefront/platefront/internal/model"
)

// Authenticator is the slice of the API client the login form needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (model.Credential, error)
}

// LoginForm validates synchronously only: both fields must be non-empty.
// The asynchronous part is the login call itself, reported through the
// single-slot form message.
type LoginForm struct {
	mu       sync.Mutex
	auth     Authenticator
	username *field
	password *field
	message  FormMessage
}

// NewLoginForm builds a login form over auth.
func NewLoginForm(auth Authenticator) *LoginForm {
	return &LoginForm{
		auth: auth,
		username: &field{
			name:      FieldUsername,
			immediate: []Rule{nonEmpty("Provide a username.")},
		},
		password: &field{
			name:      FieldPassword,
			immediate: []Rule{nonEmpty("Provide a password.")},
		},
	}
}

// Input records a keystroke and re-validates the field. Any form-level
// message is cleared.
func (f *LoginForm) Input(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var fld *field
	switch name {
	case FieldUsername:
		fld = f.username
	case FieldPassword:
		fld = f.password
	default:
		return
	}

	f.message = FormMessage{}
	fld.resetForInput(value)
	fld.runImmediate()
}

// Submit re-validates both fields, then exchanges them for a credential.
// Validation failure is a hard no-op gate; an authentication failure lands
// in the form message and never touches persisted session state.
func (f *LoginForm) Submit(ctx context.Context) (model.Credential, error) {
	f.mu.Lock()
	f.username.runImmediate()
	f.password.runImmediate()
	if f.username.state.Invalid || f.password.state.Invalid {
		f.mu.Unlock()
		return model.Credential{}, ErrBlocked
	}
	username := f.username.state.Value
	password := f.password.state.Value
	f.message = FormMessage{Text: "Sending request..."}
	f.mu.Unlock()

	cred, err := f.auth.Login(ctx, username, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return model.Credential{}, err
		}
		f.message = FormMessage{IsError: true, Text: displayMessage(err)}
		return model.Credential{}, err
	}
	f.message = FormMessage{}
	return cred, nil
}

// Username returns a copy of the username field state.
func (f *LoginForm) Username() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username.state
}

// Password returns a copy of the password field state.
func (f *LoginForm) Password() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.password.state
}

// Message returns the current form-level message.
func (f *LoginForm) Message() FormMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

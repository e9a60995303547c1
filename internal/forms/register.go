package forms

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/platefront/platefront/internal/api"
	"github.com/platefront/platefront/internal/async"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
)

// Field names accepted by Input.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// DefaultSettleDelay is the quiesce window before delayed rules and the
// uniqueness check run.
const DefaultSettleDelay = 800 * time.Millisecond

// ErrBlocked is returned when the submit gate rejects the attempt. It is a
// hard no-op, not a deferred submission.
var ErrBlocked = errors.New("submission blocked by form state")

// Directory is the slice of the API client the registration form needs.
type Directory interface {
	UsernameExists(ctx context.Context, name string) (bool, error)
	EmailExists(ctx context.Context, addr string) (bool, error)
	Register(ctx context.Context, username, email, password string) (model.Credential, error)
}

// RegisterForm owns the three registration fields and their validity state
// machines. One mutex serializes keystrokes, timer firings and check
// completions, the same ordering discipline the board uses.
type RegisterForm struct {
	mu       sync.Mutex
	dir      Directory
	logger   *slog.Logger
	debounce *async.Debouncer
	delay    time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	username *field
	email    *field
	password *field
	message  FormMessage
	closed   bool
}

// RegisterOption adjusts form construction.
type RegisterOption func(*RegisterForm)

// WithSettleDelay overrides the debounce window.
func WithSettleDelay(d time.Duration) RegisterOption {
	return func(f *RegisterForm) { f.delay = d }
}

// NewRegisterForm builds a registration form over dir.
func NewRegisterForm(dir Directory, logger *slog.Logger, opts ...RegisterOption) *RegisterForm {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())

	f := &RegisterForm{
		dir:      dir,
		logger:   logger,
		debounce: async.NewDebouncer(),
		delay:    DefaultSettleDelay,
		ctx:      ctx,
		cancel:   cancel,
	}
	f.username = &field{
		name:            FieldUsername,
		immediate:       []Rule{maxLength(30, "Username"), alphanumeric("Username")},
		delayed:         []Rule{minLength(3, "Username")},
		check:           dir.UsernameExists,
		conflictMessage: "That username is already being used.",
		failureMessage:  "Could not verify username availability.",
	}
	f.email = &field{
		name:            FieldEmail,
		delayed:         []Rule{validEmail()},
		check:           dir.EmailExists,
		conflictMessage: "That email is already being used.",
		failureMessage:  "Could not verify email availability.",
	}
	f.password = &field{
		name:      FieldPassword,
		immediate: []Rule{maxLength(50, "Password")},
		delayed:   []Rule{minLength(12, "Password")},
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RegisterForm) fields() []*field {
	return []*field{f.username, f.email, f.password}
}

func (f *RegisterForm) fieldByName(name string) *field {
	switch name {
	case FieldUsername:
		return f.username
	case FieldEmail:
		return f.email
	case FieldPassword:
		return f.password
	}
	return nil
}

// Input records a keystroke: synchronous rules re-run from scratch, prior
// async invalidity and the form message are cleared, and the settle timer
// restarts. An emptied field cancels its pending settle.
func (f *RegisterForm) Input(name, value string) {
	f.mu.Lock()
	fld := f.fieldByName(name)
	if fld == nil || f.closed {
		f.mu.Unlock()
		return
	}
	f.message = FormMessage{}
	fld.resetForInput(value)
	fld.runImmediate()
	f.mu.Unlock()

	if value == "" {
		f.debounce.Cancel(name)
		return
	}
	f.debounce.Call(name, f.delay, func() { f.settle(name) })
}

// settle fires once no further input arrived within the quiesce window.
// Delayed rules run first; only a field they leave valid dispatches a
// uniqueness check, and exactly one per new CheckCount.
func (f *RegisterForm) settle(name string) {
	f.mu.Lock()
	fld := f.fieldByName(name)
	if fld == nil || f.closed {
		f.mu.Unlock()
		return
	}

	fld.runDelayed()
	if fld.state.Invalid || fld.check == nil {
		f.mu.Unlock()
		return
	}

	fld.state.CheckCount++
	forCount := fld.state.CheckCount
	fld.state.CheckInProgress = true
	fld.state.Checked = false
	if fld.inflight != nil {
		fld.inflight.Cancel()
	}

	value := fld.state.Value
	check := fld.check
	var conflict bool
	fld.inflight = async.Run(f.ctx, func(ctx context.Context) error {
		taken, err := check(ctx, value)
		conflict = taken
		return err
	}, func(err error) {
		f.applyCheckResult(name, forCount, conflict, err)
	})
	f.mu.Unlock()
}

// applyCheckResult merges one check completion. Results from a superseded
// CheckCount are discarded; a transport failure fails closed.
func (f *RegisterForm) applyCheckResult(name string, forCount int, conflict bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld := f.fieldByName(name)
	if fld == nil || f.closed {
		return
	}
	if forCount != fld.state.CheckCount {
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		f.logger.Info("availability check failed", "field", name, "error", err)
		fld.state.CheckInProgress = false
		fld.state.Invalid = true
		fld.state.Message = fld.failureMessage
		return
	}

	fld.state.CheckInProgress = false
	fld.state.Checked = true
	if conflict {
		fld.state.Invalid = true
		fld.state.Unique = false
		fld.state.Message = fld.conflictMessage
		return
	}
	fld.state.Unique = true
}

// Submit re-runs every synchronous rule unconditionally — the user may
// submit before any settle window has elapsed — and gates hard on invalid,
// unchecked or in-progress fields. On pass it registers the account and
// returns the session credential.
func (f *RegisterForm) Submit(ctx context.Context) (model.Credential, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return model.Credential{}, ErrBlocked
	}
	for _, fld := range f.fields() {
		fld.runImmediate()
		fld.runDelayed()
	}
	for _, fld := range f.fields() {
		if fld.gateBlocked() {
			f.mu.Unlock()
			return model.Credential{}, ErrBlocked
		}
	}
	username := f.username.state.Value
	email := f.email.state.Value
	password := f.password.state.Value
	f.message = FormMessage{Text: "Sending request..."}
	f.mu.Unlock()

	cred, err := f.dir.Register(ctx, username, email, password)

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
func (f *RegisterForm) Username() FieldState { return f.fieldState(f.username) }

// Email returns a copy of the email field state.
func (f *RegisterForm) Email() FieldState { return f.fieldState(f.email) }

// Password returns a copy of the password field state.
func (f *RegisterForm) Password() FieldState { return f.fieldState(f.password) }

// Message returns the current form-level message.
func (f *RegisterForm) Message() FormMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *RegisterForm) fieldState(fld *field) FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fld.state
}

// Close tears the form down: pending settle timers and in-flight checks are
// cancelled and no state merge happens afterwards.
func (f *RegisterForm) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, fld := range f.fields() {
		if fld.inflight != nil {
			fld.inflight.Cancel()
			fld.inflight = nil
		}
	}
	f.mu.Unlock()

	f.debounce.Stop()
	f.cancel()
}

// displayMessage prefers the server-asserted message when present.
func displayMessage(err error) string {
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return err.Error()
}

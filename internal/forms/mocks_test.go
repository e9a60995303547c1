package forms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/platefront/platefront/internal/model"
)

// fakeDirectory is a controllable stand-in for the registration API. A
// non-nil gate channel makes the corresponding call block until the gate is
// closed or the context is cancelled.
type fakeDirectory struct {
	mu            sync.Mutex
	usernameTaken bool
	emailTaken    bool
	usernameErr   error
	emailErr      error
	usernameCalls int
	emailCalls    int
	usernameGate  chan struct{}

	registerCred  model.Credential
	registerErr   error
	registerCalls int
	registerGate  chan struct{}
	lastRegister  [3]string
}

func (d *fakeDirectory) UsernameExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	d.usernameCalls++
	gate := d.usernameGate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usernameTaken, d.usernameErr
}

func (d *fakeDirectory) EmailExists(ctx context.Context, addr string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emailCalls++
	return d.emailTaken, d.emailErr
}

func (d *fakeDirectory) Register(ctx context.Context, username, email, password string) (model.Credential, error) {
	d.mu.Lock()
	d.registerCalls++
	d.lastRegister = [3]string{username, email, password}
	gate := d.registerGate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.Credential{}, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerCred, d.registerErr
}

func (d *fakeDirectory) checks(field string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if field == FieldEmail {
		return d.emailCalls
	}
	return d.usernameCalls
}

// fakeAuthenticator is a canned login backend.
type fakeAuthenticator struct {
	mu       sync.Mutex
	cred     model.Credential
	err      error
	calls    int
	lastUser string
	lastPass string
}

func (a *fakeAuthenticator) Login(ctx context.Context, username, password string) (model.Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.lastUser = username
	a.lastPass = password
	return a.cred, a.err
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

// forceValidChecked puts a field into the fully validated state, as if its
// settle window and uniqueness check had both completed cleanly.
func forceValidChecked(fld *field, value string) {
	fld.state = FieldState{Value: value, Unique: true, Checked: true}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/platefront/platefront/internal/api"
	"github.com/platefront/platefront/internal/basket"
	"github.com/platefront/platefront/internal/board"
	"github.com/platefront/platefront/internal/catalog"
	"github.com/platefront/platefront/internal/config"
	"github.com/platefront/platefront/internal/forms"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
	"github.com/platefront/platefront/internal/session"
)

const (
	appName    = "platefront"
	appVersion = "0.1.0"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML config file")
		loginName    = flag.String("login", "", "log in as this username, then run the board")
		registerName = flag.String("register", "", "register a new account with this username, then run the board")
		email        = flag.String("email", "", "email for -register")
		password     = flag.String("password", "", "password for -login/-register")
		logout       = flag.Bool("logout", false, "clear the stored session and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%s(%s) cannot load config: %v", appName, appVersion, err)
	}

	logger := logging.Setup(cfg.String("log.level", "info"), cfg.String("log.format", "text"))

	store, err := session.Open(sessionPath(cfg))
	if err != nil {
		log.Fatalf("%s(%s) cannot open session: %v", appName, appVersion, err)
	}

	if *logout {
		if err := store.Clear(); err != nil {
			log.Fatalf("%s(%s) cannot clear session: %v", appName, appVersion, err)
		}
		logger.Info("session cleared")
		return
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	client := api.NewClient(cfg.String("server.base_url", ""))

	if *registerName != "" {
		form := forms.NewRegisterForm(client, logger,
			forms.WithSettleDelay(cfg.DurationMS("forms.debounce_ms", forms.DefaultSettleDelay)))
		form.Input(forms.FieldUsername, *registerName)
		form.Input(forms.FieldEmail, *email)
		form.Input(forms.FieldPassword, *password)

		cred, err := submitWhenSettled(ctx, form)
		form.Close()
		if err != nil {
			log.Fatalf("%s(%s) registration failed: %s", appName, appVersion, registerFailure(form, err))
		}
		if err := store.SetCredential(cred); err != nil {
			log.Fatalf("%s(%s) cannot persist session: %v", appName, appVersion, err)
		}
		logger.Info("registered", "username", cred.Username)
	}

	if *loginName != "" {
		form := forms.NewLoginForm(client)
		form.Input(forms.FieldUsername, *loginName)
		form.Input(forms.FieldPassword, *password)
		cred, err := form.Submit(ctx)
		if err != nil {
			msg := form.Message()
			log.Fatalf("%s(%s) login failed: %s", appName, appVersion, msg.Text)
		}
		if err := store.SetCredential(cred); err != nil {
			log.Fatalf("%s(%s) cannot persist session: %v", appName, appVersion, err)
		}
		logger.Info("logged in", "username", cred.Username, "admin", cred.IsAdmin)
	}

	cred, ok := store.Credential()
	if !ok {
		log.Fatalf("%s(%s) no session; run with -login <username> -password <password>", appName, appVersion)
	}

	conn, err := push.Connect(cfg.String("nats.url", ""))
	if err != nil {
		log.Fatalf("%s(%s) cannot connect push channel: %v", appName, appVersion, err)
	}
	defer conn.Close()

	ref := catalog.New(client, logger)
	ref.Load(ctx)
	if ref.LoadFailed() {
		logger.Warn("product catalog unavailable for this session")
	}

	bkt := basket.New(conn, conn, logger)
	if err := bkt.Start(ctx, cred.UserID, func(o model.Order) {
		logger.Info("order placed", "order_id", o.ID.String())
	}); err != nil {
		log.Fatalf("%s(%s) cannot start basket listener: %v", appName, appVersion, err)
	}
	defer bkt.Close()

	b := board.New(client, conn, conn, logger)
	b.OnChange(func() { render(b) })
	if err := b.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start order board: %v", appName, appVersion, err)
	}
	defer b.Close()

	b.Load(ctx)
	if b.LoadFailed() {
		log.Fatalf("%s(%s) order snapshot unavailable; restart to retry", appName, appVersion)
	}

	logger.Info("order board running", "username", cred.Username)
	<-ctx.Done()
	logger.Info("shutting down")
}

func render(b *board.Board) {
	orders := b.Snapshot()
	fmt.Printf("--- order board (%d) ---\n", len(orders))
	for _, o := range orders {
		fmt.Printf("%-20s %s %s\n", o.DisplayName, o.CreatedAt.Local().Format("03:04:05 PM"), o.Status)
	}
}

// submitWhenSettled waits for the availability checks to settle before
// attempting the submit; the gate rejects anything unchecked or mid-check.
func submitWhenSettled(ctx context.Context, form *forms.RegisterForm) (model.Credential, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(15 * time.Second)
	defer deadline.Stop()

	for {
		username, mail := form.Username(), form.Email()
		if username.Invalid || mail.Invalid || form.Password().Invalid {
			return model.Credential{}, forms.ErrBlocked
		}
		if username.Checked && mail.Checked {
			return form.Submit(ctx)
		}
		select {
		case <-ctx.Done():
			return model.Credential{}, ctx.Err()
		case <-deadline.C:
			return model.Credential{}, errors.New("field validation timed out")
		case <-ticker.C:
		}
	}
}

// registerFailure picks the most specific message available for the user.
func registerFailure(form *forms.RegisterForm, err error) string {
	for _, st := range []forms.FieldState{form.Username(), form.Email(), form.Password()} {
		if st.Invalid && st.Message != "" {
			return st.Message
		}
	}
	if msg := form.Message(); msg.Text != "" {
		return msg.Text
	}
	return err.Error()
}

func sessionPath(cfg *config.Config) string {
	if p := cfg.String("session.path", ""); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".platefront-session.json"
	}
	return filepath.Join(home, ".platefront", "session.json")
}

// Package cli is the jotter command line: a thin cobra front end over the
// session manager and the journal store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"jotter/internal/client"
	"jotter/internal/config"
	"jotter/internal/gateway"
	"jotter/internal/journal"
	"jotter/internal/logging"
	"jotter/internal/models"
	"jotter/internal/session"
)

var ErrNotSignedIn = errors.New("not signed in; run `jotter login` first")

// Backend is the gateway plus the profile call used to repair accounts that
// signed in without a profile.
type Backend interface {
	gateway.Gateway
	SaveProfile(ctx context.Context, displayName string) (*models.User, error)
}

// App is the state one jotter process works with.
type App struct {
	Backend  Backend
	// Storage is what logout clears. NewApp uses the client itself so the
	// token it forgets can still be revoked.
	Storage  session.Storage
	Location *time.Location
	Log      *zap.Logger
	In       io.Reader
	Out      io.Writer
	// ReadPassword reads without echo; nil falls back to a plain line read.
	ReadPassword func(fd int) ([]byte, error)

	session *session.Manager
	store   *journal.Store
	loaded  bool
	reader  *bufio.Reader
	flush   func()
}

// NewApp wires the HTTP client, token file and file logger from cfg.
func NewApp(cfg *config.Client) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	log, flush := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Rotate: logging.FileRotate{Filename: cfg.Log.File, MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		Quiet:  true,
	})
	tokens := client.NewFileTokenStore(cfg.TokenFile)
	backend := client.New(cfg.ServerURL, tokens,
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		client.WithLogger(log))

	return &App{
		Backend:      backend,
		Storage:      backend,
		Location:     loc,
		Log:          log,
		In:           os.Stdin,
		Out:          os.Stdout,
		ReadPassword: term.ReadPassword,
		flush:        flush,
	}, nil
}

func (a *App) Close() {
	if a.flush != nil {
		a.flush()
	}
}

func (a *App) init() {
	if a.session != nil {
		return
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	if a.Location == nil {
		a.Location = time.Local
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	a.reader = bufio.NewReader(a.In)
	a.session = session.NewManager(a.Backend, a.Storage, a.Log, session.Options{})
	a.store = journal.NewStore(a.Backend, a.Log, journal.Options{Location: a.Location})
}

// user resolves the remembered session, or ErrNotSignedIn.
func (a *App) user(ctx context.Context) (*models.User, error) {
	a.init()
	a.session.LoadUserSession(ctx)
	snap := a.session.Snapshot()
	if snap.IsAuthenticated && snap.User != nil {
		return snap.User, nil
	}
	if err := a.session.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotSignedIn
}

// data loads the signed-in user's journals and entries once per App.
func (a *App) data(ctx context.Context) (*models.User, *journal.Store, error) {
	u, err := a.user(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !a.loaded || a.store.Snapshot().UserID != u.ID {
		if err := a.store.LoadJournals(ctx, u.ID); err != nil {
			return nil, nil, a.check(err)
		}
		a.loaded = true
	}
	return u, a.store, nil
}

// check signs the session out locally when err says it expired.
func (a *App) check(err error) error {
	if err != nil && a.session.HandleError(err) {
		a.store.Reset()
		a.loaded = false
	}
	return err
}

func (a *App) prompt(label string) (string, error) {
	a.init()
	fmt.Fprintf(a.Out, "%s: ", label)
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) password(label string) (string, error) {
	a.init()
	if f, ok := a.In.(*os.File); ok && a.ReadPassword != nil && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(a.Out, "%s: ", label)
		pw, err := a.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	return a.prompt(label)
}

// Message is what the binary prints for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotSignedIn):
		return err.Error()
	case errors.Is(err, gateway.ErrProfileNotFound):
		return gateway.UserMessage(err) + " Run `jotter profile <name>` to create one."
	}
	return gateway.UserMessage(err)
}

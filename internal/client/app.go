package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/VinMeld/campus-chat/internal/api"
	"github.com/VinMeld/campus-chat/internal/popup"
	"github.com/VinMeld/campus-chat/internal/registry"
	"github.com/VinMeld/campus-chat/internal/session"
	"github.com/VinMeld/campus-chat/internal/storage"
	"github.com/VinMeld/campus-chat/internal/transcript"
)

// App is one client instance: durable session, backend client, document
// registry and transcript, wired together.
type App struct {
	Config     *Config
	API        *api.Client
	Session    *session.Store
	Registry   *registry.Registry
	Transcript *transcript.Engine
	Notifier   *writerNotifier

	durable   storage.Durable
	logoutSub *session.Subscription
}

// newOpener builds the login window opener. Tests replace it.
var newOpener = func(c *Config) popup.Opener {
	return popup.ChromeOpener{ExecPath: c.Popup.ChromePath, Headless: c.Popup.Headless}
}

// NewApp opens durable storage and restores any previous session. Answers
// stream to out and notifications go to errOut.
func NewApp(ctx context.Context, c *Config, out, errOut io.Writer) (*App, error) {
	opts, err := c.StorageOptions()
	if err != nil {
		return nil, fmt.Errorf("resolve storage: %w", err)
	}
	durable, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sess := session.NewStore(durable)
	if _, err := sess.Restore(ctx); err != nil {
		slog.Warn("could not restore session", "error", err)
	}

	client := api.New(c.EffectiveServerURL())
	notifier := &writerNotifier{w: errOut}
	printer := &streamPrinter{w: out}
	engine := transcript.New(transcript.Options{
		Asker:    client,
		Gate:     sess,
		Notifier: notifier,
		Interval: c.RevealInterval(),
		OnUpdate: printer.Update,
	})

	return &App{
		Config:     c,
		API:        client,
		Session:    sess,
		Registry:   registry.New(client),
		Transcript: engine,
		Notifier:   notifier,
		durable:    durable,
		logoutSub:  sess.OnLogout(engine.Reset),
	}, nil
}

// Handshake builds a popup login bound to this app's session. The caller
// must close the returned relay.
func (a *App) Handshake() (*popup.Handshake, *popup.Relay, error) {
	relay, err := popup.NewRelay(popup.OriginOf(a.API.BaseURL()))
	if err != nil {
		return nil, nil, err
	}
	return &popup.Handshake{
		Opener:    newOpener(a.Config),
		Initiator: a.API,
		Relay:     relay,
		Session:   a.Session,
		Notifier:  a.Notifier,
		Geometry:  a.Config.PopupGeometry(),
	}, relay, nil
}

func (a *App) Close() error {
	a.logoutSub.Close()
	a.Transcript.Close()
	return a.durable.Close()
}

// withApp runs fn against a fresh App for one command invocation.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App)) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Error:", err)
		return
	}
	defer func() { _ = app.Close() }()
	fn(ctx, app)
}

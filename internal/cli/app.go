package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/kb-assistant-web/internal/adapters/filestore"
	"github.com/target/kb-assistant-web/internal/adapters/jwtclaims"
	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/bootstrap"
	"github.com/target/kb-assistant-web/internal/ports"
	"github.com/target/kb-assistant-web/internal/service"
)

// cliClientID names the single session a terminal owns.
const cliClientID = "kbctl"

// app is the per-invocation state shared by subcommands.
type app struct {
	session *service.ClientSession
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	json    bool
}

// singleStore hands the same token file to every client id.
type singleStore struct{ store ports.TokenStore }

//nolint:ireturn // the port is the contract callers depend on.
func (s singleStore) ForClient(string) ports.TokenStore { return s.store }

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	if flags.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(flags.apiURL), "/")
	}
	if err := bootstrap.ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	path := flags.tokenFile
	if path == "" {
		if path, err = filestore.DefaultPath(); err != nil {
			return nil, err
		}
	}

	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	api := apiclient.New(apiclient.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Logger:     logger,
	})
	build := service.NewClientSessionBuilder(service.ClientSessionDeps{
		API:             api,
		Tokens:          singleStore{store: &filestore.TokenFile{Path: path}},
		Inspector:       jwtclaims.Inspector{},
		Paths:           bootstrap.AuthPaths(cfg.Auth),
		Mapping:         bootstrap.ResponseMapping(cfg.Auth),
		RemoteLogout:    cfg.Auth.RemoteLogout,
		TranscriptLimit: cfg.Session.TranscriptLimit,
		Logger:          logger,
	})

	return &app{
		session: build(cliClientID),
		in:      cmd.InOrStdin(),
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		json:    flags.json,
	}, nil
}

// requireSession resolves the stored token and fails unless it is accepted.
func (a *app) requireSession(ctx context.Context) error {
	a.session.Auth.Init(ctx)
	if !a.session.Auth.Snapshot().Authenticated() {
		a.flushNotices()
		return errNotSignedIn
	}
	return nil
}

// finish waits for background work (remote logout) and prints queued notices.
func (a *app) finish() {
	a.session.Auth.Wait()
	a.flushNotices()
}

func (a *app) flushNotices() {
	for _, n := range a.session.Inbox.Drain() {
		if a.json {
			continue
		}
		fmt.Fprintln(a.errOut, renderNotice(n))
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// interactive reports whether prompts can be shown.
func (a *app) interactive() bool {
	f, ok := a.in.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}

// withApp adapts a subcommand body to cobra's RunE.
func withApp(flags *globalFlags, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, flags)
		if err != nil {
			return err
		}
		defer a.finish()
		return fn(cmd.Context(), a, args)
	}
}

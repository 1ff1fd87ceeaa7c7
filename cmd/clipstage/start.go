package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstage/internal/alias"
	"go.klb.dev/clipstage/internal/auth"
	"go.klb.dev/clipstage/internal/clip"
	"go.klb.dev/clipstage/internal/mcp"
	"go.klb.dev/clipstage/internal/processor"
	"go.klb.dev/clipstage/internal/staging"
	"go.klb.dev/clipstage/internal/watcher"
)

func newStartCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the clipboard staging daemon",
		Long: `Starts the clipstage daemon: the JSON-RPC tool server, and with
--watch also the clipboard watcher that stages images and oversized text
automatically.

The tool server binds to 127.0.0.1 only and requires a bearer token
unless --no-auth is given. The token is printed at startup and by
"clipstage token".

Config file search order:
  /etc/clipstage/clipstage.toml
  $HOME/.config/clipstage/clipstage.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSTAGE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStart(v) },
	}

	f := cmd.Flags()
	f.String("addr", mcp.DefaultAddr, "tool server listen address")
	f.Bool("no-auth", false, "disable bearer token authentication")
	f.Bool("write", false, "allow the clipboard.set tool to modify the clipboard")
	f.Bool("watch", false, "watch the clipboard and stage changes automatically")
	f.String("staging-dir", "", "staging directory (default: $TMPDIR/clipstage)")
	f.String("alias-dir", defaultAliasDir(), "directory for symlink aliases")
	f.String("alias-prefix", "clip-paste", "filename prefix for symlink aliases")
	f.Int("keep-aliases", alias.DefaultKeep, "numbered aliases to retain per content kind")
	f.Duration("poll-interval", watcher.DefaultPollInterval, "clipboard poll interval")
	f.Int("inline-threshold", processor.DefaultInlineThreshold, "largest text size kept inline on the clipboard (bytes)")
	f.Duration("cleanup-interval", staging.DefaultCleanupInterval, "staging eviction sweep interval")
	f.Duration("max-age", staging.DefaultMaxAge, "staged file lifetime before eviction")
	f.Bool("no-dual-format", false, "never attempt dual text+image clipboard writes")
	f.Bool("no-notifications", false, "disable desktop notifications")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStart(v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := clip.New()
	acc := clip.NewAccessor(backend)
	defer acc.Close()

	store := staging.New(staging.Config{
		Dir:             v.GetString("staging-dir"),
		CleanupInterval: v.GetDuration("cleanup-interval"),
		MaxAge:          v.GetDuration("max-age"),
	})
	go store.RunEviction(ctx)

	am, err := auth.New(auth.Config{RequireAuth: !v.GetBool("no-auth")})
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	slog.Info("clipstage starting",
		"version", Version,
		"backend", acc.BackendName(),
		"staging_dir", store.Dir(),
		"auth", am.Token() != "",
		"watch", v.GetBool("watch"),
		"write", v.GetBool("write"),
	)
	if token := am.Token(); token != "" {
		slog.Info("bearer token loaded", "path", auth.DefaultTokenPath())
		fmt.Printf("Auth token: %s\n", token)
	}

	if v.GetBool("watch") {
		rotator := alias.NewRotator(
			v.GetString("alias-dir"),
			v.GetString("alias-prefix"),
			v.GetInt("keep-aliases"),
		)
		strategy := clip.NewWriteStrategy(acc, !v.GetBool("no-dual-format"))
		proc := processor.New(processor.Config{
			InlineThreshold: v.GetInt("inline-threshold"),
			Notifications:   !v.GetBool("no-notifications"),
		}, store, rotator, acc, strategy)

		w := watcher.New(acc, v.GetDuration("poll-interval"))
		go w.Run(ctx)
		go proc.Run(ctx, w.Events())
	}

	srv := mcp.New(mcp.Config{
		InlineThreshold: v.GetInt("inline-threshold"),
		AllowWrite:      v.GetBool("write"),
		Version:         Version,
	}, acc, store, am)

	err = srv.Run(ctx, v.GetString("addr"))

	// give the watcher and processor a moment to observe cancellation
	if ctx.Err() != nil {
		time.Sleep(100 * time.Millisecond)
		slog.Info("clipstage stopped")
	}
	return err
}

// defaultAliasDir prefers the desktop so staged content is easy to find.
func defaultAliasDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

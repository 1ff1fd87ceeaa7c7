// clipstage: clipboard staging daemon with a JSON-RPC tool surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipstage/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipstage",
		Short: "Clipboard staging daemon",
		Long: `clipstage watches the system clipboard, stages large text and images
into content-addressed files, and maintains a rotating set of "latest"
symlink aliases so other tools can reference clipboard content by a
stable path.

Run "clipstage start" to launch the daemon. It also serves a JSON-RPC
tool endpoint on 127.0.0.1:3830 guarded by a bearer token; run
"clipstage token" to print the token and "clipstage config" to emit a
ready-made client configuration.

Config file search order (first found wins):
  /etc/clipstage/clipstage.toml
  $HOME/.config/clipstage/clipstage.toml
  path supplied via --config

All flags can be set via CLIPSTAGE_<FLAG> env vars or config-file keys.
See "clipstage start --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newStartCmd(),
		newClipCmd(),
		newTokenCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipstage %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}

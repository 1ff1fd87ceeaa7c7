package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstage/internal/auth"
	"go.klb.dev/clipstage/internal/mcp"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the bearer token for the tool server",
		Long: `Prints the token clients must present as "Authorization: Bearer <token>".
The token is created on first daemon start; exits nonzero when none
exists yet.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(auth.DefaultTokenPath())
			if err != nil {
				return fmt.Errorf("no token found (run \"clipstage start\" first): %w", err)
			}
			fmt.Println(strings.TrimSpace(string(raw)))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Emit a tool-server client configuration",
		Long: `Writes a JSON snippet describing the clipstage tool endpoint, with the
bearer token filled in, suitable for pasting into a client's tool
configuration.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runConfig(v) },
	}

	f := cmd.Flags()
	f.String("addr", mcp.DefaultAddr, "tool server address")
	f.String("output", "", "write to file instead of stdout")
	addConfigFlag(cmd)

	return cmd
}

func runConfig(v *viper.Viper) error {
	token := ""
	if raw, err := os.ReadFile(auth.DefaultTokenPath()); err == nil {
		token = strings.TrimSpace(string(raw))
	}

	cfg := map[string]any{
		"clipstage": map[string]any{
			"url": fmt.Sprintf("http://%s/rpc", v.GetString("addr")),
			"headers": map[string]string{
				"Authorization": "Bearer " + token,
			},
		},
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if path := v.GetString("output"); path != "" {
		if err := os.WriteFile(path, out, 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}
	_, err = os.Stdout.Write(out)
	return err
}

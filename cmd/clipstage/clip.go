package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstage/internal/clip"
	"go.klb.dev/clipstage/internal/snapshot"
	"go.klb.dev/clipstage/internal/staging"
)

func newClipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Inspect the clipboard from the command line",
	}
	cmd.AddCommand(newClipGetCmd(), newClipPasteCmd())
	return cmd
}

func newClipGetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the clipboard content description",
		Long: `Reads the clipboard directly and prints a description of its content.

With --format json the output is a JSON object with type, data (text or
base64 image), and image dimensions. With --format text only the text
payload is printed; images produce an error.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runClipGet(v) },
	}

	f := cmd.Flags()
	f.String("format", "json", "output format: json|text")
	addConfigFlag(cmd)

	return cmd
}

func runClipGet(v *viper.Viper) error {
	snap, err := readClipboard()
	if err != nil {
		return err
	}

	switch v.GetString("format") {
	case "text":
		if snap.Kind != snapshot.KindText {
			return fmt.Errorf("clipboard holds %s, not text", snap.Kind)
		}
		_, err := os.Stdout.Write(snap.Text)
		return err
	default:
		out := map[string]any{
			"type":      string(snap.Kind),
			"timestamp": snap.CapturedAt.UTC().Format(time.RFC3339),
		}
		if snap.Kind == snapshot.KindText {
			out["data"] = string(snap.Text)
		} else {
			out["data"] = base64.StdEncoding.EncodeToString(snap.Image)
			out["width"] = snap.Width
			out["height"] = snap.Height
			out["size"] = snap.ByteSize
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func newClipPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print clipboard text, or stage an image and print its path",
		Long: `Like pbpaste for text. When the clipboard holds an image, the image
is staged to a content-addressed file and its path is printed instead,
ready to hand to another tool:

  open "$(clipstage clip paste)"`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runClipPaste(v) },
	}

	f := cmd.Flags()
	f.String("staging-dir", "", "staging directory (default: $TMPDIR/clipstage)")
	addConfigFlag(cmd)

	return cmd
}

func runClipPaste(v *viper.Viper) error {
	snap, err := readClipboard()
	if err != nil {
		return err
	}

	if snap.Kind == snapshot.KindText {
		_, err := os.Stdout.Write(snap.Text)
		return err
	}

	store := staging.New(staging.Config{Dir: v.GetString("staging-dir")})
	art, err := store.Stage(snap.Image, snap.Kind)
	if err != nil {
		return fmt.Errorf("stage image: %w", err)
	}
	fmt.Println(art.Path)
	return nil
}

// readClipboard opens a backend for a single read. Empty clipboard is an
// error here because the caller asked for content explicitly.
func readClipboard() (snapshot.Snapshot, error) {
	acc := clip.NewAccessor(clip.New())
	defer acc.Close()

	snap, err := acc.Read()
	if err != nil {
		if errors.Is(err, clip.ErrNoContent) {
			return snapshot.Snapshot{}, errors.New("clipboard is empty")
		}
		return snapshot.Snapshot{}, fmt.Errorf("read clipboard: %w", err)
	}
	return snap, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/normalize"
	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

func normalizeCmd() *cobra.Command {
	var mode, action, rating string
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize raw model output into a DM response",
		Long:  "Reads raw model output from a file, or stdin when no file is given, and prints the normalized response as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			n := &normalize.Normalizer{Filter: textfilter.ForRating(rating)}

			var resp *dm.Response
			switch services.Mode(mode) {
			case services.ModeStructured:
				resp, err = n.Structured(string(raw))
			case services.ModeFreeform:
				resp, err = n.Freeform(string(raw), dm.Action(action), time.Now())
			default:
				return fmt.Errorf("unknown mode %q (want structured or freeform)", mode)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(services.ModeStructured), "output mode: structured or freeform")
	cmd.Flags().StringVar(&action, "action", string(dm.ActionProcessAction), "action recorded in freeform audit updates")
	cmd.Flags().StringVar(&rating, "rating", "", "content rating; G, PG and PG13 filter profanity")
	return cmd
}

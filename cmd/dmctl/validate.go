package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/pkg/dm"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request.json>",
		Short: "Check a DM request file against the request schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if _, err := readRequest(cmd, args[0]); err != nil {
		var verr *dm.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "Errors (%d):\n", len(verr.Details))
			for _, d := range verr.Details {
				fmt.Fprintf(out, "  - %s\n", d)
			}
			return fmt.Errorf("validation found errors")
		}
		return err
	}
	fmt.Fprintln(out, "Request is valid.")
	return nil
}

// readRequest decodes and validates a request from a file, or stdin for "-".
func readRequest(cmd *cobra.Command, path string) (*dm.Request, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	req, err := dm.DecodeRequest(r)
	if err != nil {
		return nil, err
	}
	if err := dm.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

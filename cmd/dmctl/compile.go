package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

func compileCmd() *cobra.Command {
	var rating string
	var userOnly, freeform bool
	cmd := &cobra.Command{
		Use:   "compile <request.json>",
		Short: "Print the prompt a DM request compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, args[0])
			if err != nil {
				return err
			}
			msgs := prompts.New().
				WithAction(req.Action).
				WithGameState(req.GameState).
				WithPlayerAction(req.PlayerAction).
				WithContext(req.Context).
				WithContentRating(rating).
				WithStructuredOutput(!freeform).
				Build()
			if userOnly {
				msgs = msgs[1:]
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompts.Join(msgs))
			return nil
		},
	}
	cmd.Flags().StringVar(&rating, "rating", "", "content rating (G, PG, PG13, R)")
	cmd.Flags().BoolVar(&freeform, "freeform", false, "ask for prose instead of the JSON contract")
	cmd.Flags().BoolVar(&userOnly, "user-only", false, "omit the system persona")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

var moodReq models.TransitRequest

var moodCmd = &cobra.Command{
	Use:   "mood",
	Short: "Show the weekly mood bars of a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		src, err := newSource(cmd)
		if err != nil {
			return err
		}
		mood, err := src.Mood(cmd.Context(), withCurrentMonth(moodReq))
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), mood)
		}
		return writeMood(cmd.OutOrStdout(), mood)
	},
}

func init() {
	addRequestFlags(moodCmd, &moodReq)
	rootCmd.AddCommand(moodCmd)
}

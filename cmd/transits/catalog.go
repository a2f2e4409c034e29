package main

import (
	"github.com/spf13/cobra"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

var aspectsCmd = &cobra.Command{
	Use:   "aspects",
	Short: "Print the aspect table with its orbs",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		src, err := newSource(cmd)
		if err != nil {
			return err
		}
		defs, err := src.Aspects(cmd.Context())
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), defs)
		}
		return writeAspects(cmd.OutOrStdout(), defs)
	},
}

var bodiesCmd = &cobra.Command{
	Use:   "bodies",
	Short: "Print the supported bodies",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		var out []models.BodyInfo
		for _, b := range models.AllBodies() {
			out = append(out, models.BodyInfo{ID: b, Label: b.Label(), Slow: b.IsSlow()})
		}
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		return writeBodies(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(aspectsCmd)
	rootCmd.AddCommand(bodiesCmd)
}

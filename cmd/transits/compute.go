package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

var computeReq models.TransitRequest

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "List the transit episodes of a month",
	Example: `  transits compute --birth "1990-01-01 12:00" --tz Europe/Paris --month 3 --year 2024
  transits compute --birth 1990-01-01T11:00:00Z --bodies saturn,sun -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		src, err := newSource(cmd)
		if err != nil {
			return err
		}
		report, err := src.Report(cmd.Context(), withCurrentMonth(computeReq))
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

// addRequestFlags binds the profile and month flags shared by compute and mood.
func addRequestFlags(cmd *cobra.Command, req *models.TransitRequest) {
	f := cmd.Flags()
	f.StringVar(&req.Birth, "birth", "", "birth time, zoned (RFC3339) or local wall clock")
	f.StringVar(&req.TZ, "tz", "", "IANA time zone of a local birth time")
	f.IntVar(&req.TZOffset, "tz-offset", 0, "offset east of UTC in minutes, when no zone is given")
	f.IntVar(&req.Month, "month", 0, "target month, 1-12 (default current month)")
	f.IntVar(&req.Year, "year", 0, "target year (default current year)")
	f.StringVar(&req.Bodies, "bodies", "", "comma separated bodies (default all)")
	f.StringVar(&req.ProfileID, "profile-id", "", "profile identifier stored with the report")
	_ = cmd.MarkFlagRequired("birth")
}

func withCurrentMonth(req models.TransitRequest) models.TransitRequest {
	now := time.Now()
	if req.Month == 0 {
		req.Month = int(now.Month())
	}
	if req.Year == 0 {
		req.Year = now.Year()
	}
	return req
}

func init() {
	addRequestFlags(computeCmd, &computeReq)
	computeCmd.Flags().BoolVar(&computeReq.Persist, "persist", false, "store the report when ClickHouse is enabled")
	rootCmd.AddCommand(computeCmd)
}

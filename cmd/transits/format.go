package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

const dateLayout = "2006-01-02"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, r *models.TransitReport) error {
	fmt.Fprintf(w, "Transits %04d-%02d (scan %s .. %s)\n\n",
		r.Year, r.Month, r.ScanStart.Format(dateLayout), r.ScanEnd.Format(dateLayout))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PEAK\tSTART\tEND\tTRANSIT\tASPECT\tNATAL\tORB")
	for _, e := range r.Episodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f°\n",
			e.PeakDate.Format(dateLayout),
			e.StartDate.Format(dateLayout),
			e.EndDate.Format(dateLayout),
			e.TransitingBody.Label(),
			e.Aspect.Label(),
			e.NatalBody.Label(),
			e.PeakDeviation,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	d := r.Diagnostics
	fmt.Fprintf(w, "\n%d episodes, %d days, %d samples", d.EpisodesFound, d.DaysScanned, d.SamplesTaken)
	if n := len(d.Failures); n > 0 {
		fmt.Fprintf(w, ", %d failed lookups", n)
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeMood(w io.Writer, m *models.MonthMood) error {
	fmt.Fprintf(w, "Mood %04d-%02d: total %+d\n", m.Year, m.Month, m.Total)
	if len(m.Weeks) == 0 {
		_, err := fmt.Fprintln(w, "no episode peaks this month")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, wk := range m.Weeks {
		for _, b := range wk.Bars {
			fmt.Fprintf(tw, "week %d\t%s\t%+d\n", wk.Week, b.Category, b.Score)
		}
	}
	return tw.Flush()
}

func writeAspects(w io.Writer, defs []models.AspectDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASPECT\tANGLE\tORB\tTONE")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%g°\t%g°\t%s\n", d.Kind.Label(), d.ExactAngle, d.Orb, d.Kind.Tone())
	}
	return tw.Flush()
}

func writeBodies(w io.Writer, bodies []models.BodyInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSLOW")
	for _, b := range bodies {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", b.ID, b.Label, b.Slow)
	}
	return tw.Flush()
}

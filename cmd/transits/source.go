package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carlcj05/Astrozee/internal/di"
	"github.com/carlcj05/Astrozee/internal/domain/models"
	"github.com/carlcj05/Astrozee/internal/usecase"
	xhttp "github.com/carlcj05/Astrozee/pkg/http"
)

// source answers the commands either from a local engine or from a server.
type source interface {
	Report(ctx context.Context, req models.TransitRequest) (*models.TransitReport, error)
	Mood(ctx context.Context, req models.TransitRequest) (*models.MonthMood, error)
	Aspects(ctx context.Context) ([]models.AspectDefinition, error)
}

func newSource(cmd *cobra.Command) (source, error) {
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		return &remoteSource{client: xhttp.NewClient(remote)}, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	l, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	reports, err := di.InitializeReports(cfg, l)
	if err != nil {
		return nil, err
	}
	return &localSource{reports: reports}, nil
}

type localSource struct {
	reports *usecase.TransitReportUseCase
}

func (s *localSource) profile(ctx context.Context, req *models.TransitRequest) (models.Profile, error) {
	if verrs := xhttp.ValidateStruct(ctx, req); verrs != nil {
		return models.Profile{}, fmt.Errorf("invalid request: %v", verrs)
	}
	return usecase.ProfileFromRequest(*req)
}

func (s *localSource) Report(ctx context.Context, req models.TransitRequest) (*models.TransitReport, error) {
	p, err := s.profile(ctx, &req)
	if err != nil {
		return nil, err
	}
	return s.reports.Generate(ctx, usecase.ReportParams{
		Profile: p,
		Month:   req.Month,
		Year:    req.Year,
		Persist: req.Persist,
	})
}

func (s *localSource) Mood(ctx context.Context, req models.TransitRequest) (*models.MonthMood, error) {
	p, err := s.profile(ctx, &req)
	if err != nil {
		return nil, err
	}
	return s.reports.Mood(ctx, p, req.Month, req.Year)
}

func (s *localSource) Aspects(context.Context) ([]models.AspectDefinition, error) {
	return s.reports.Catalog().Definitions(), nil
}

type remoteSource struct {
	client *xhttp.Client
}

func query(req models.TransitRequest) url.Values {
	q := url.Values{}
	q.Set("birth", req.Birth)
	q.Set("month", strconv.Itoa(req.Month))
	q.Set("year", strconv.Itoa(req.Year))
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("profile_id", req.ProfileID)
	set("tz", req.TZ)
	set("bodies", req.Bodies)
	if req.TZOffset != 0 {
		q.Set("tz_offset", strconv.Itoa(req.TZOffset))
	}
	if req.Persist {
		q.Set("persist", "true")
	}
	return q
}

func (s *remoteSource) Report(ctx context.Context, req models.TransitRequest) (*models.TransitReport, error) {
	var r models.TransitReport
	if err := s.client.GetData(ctx, "/api/transits", query(req), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *remoteSource) Mood(ctx context.Context, req models.TransitRequest) (*models.MonthMood, error) {
	var m models.MonthMood
	if err := s.client.GetData(ctx, "/api/transits/mood", query(req), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *remoteSource) Aspects(ctx context.Context) ([]models.AspectDefinition, error) {
	var defs []models.AspectDefinition
	if err := s.client.GetData(ctx, "/api/aspects", nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

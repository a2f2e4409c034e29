package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domrepo "github.com/carlcj05/Astrozee/internal/domain/repository"
	pkgch "github.com/carlcj05/Astrozee/pkg/clickhouse"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

const episodeChunkSize = 2000

// CHEpisodeStore persists transit reports and their episodes in ClickHouse.
type CHEpisodeStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
	tables   Tables
	l        *applogger.Logger
}

func NewCHEpisodeStore(ch *pkgch.Client, database string, tables Tables) *CHEpisodeStore {
	return &CHEpisodeStore{client: ch, db: ch.DB(), database: database, tables: tables}
}

// SetLogger injects a structured logger.
func (s *CHEpisodeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHEpisodeStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SchemaStatements(s.database, s.tables))
}

func (s *CHEpisodeStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHEpisodeStore) SaveReport(ctx context.Context, r *models.TransitReport) error {
	start := time.Now()
	natal, err := json.Marshal(r.Natal)
	if err != nil {
		return fmt.Errorf("marshal natal: %w", err)
	}
	diag, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s (report_id, profile_id, month, year, scan_start, scan_end, natal, diagnostics, generated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.tables.Reports)
	if _, err := s.db.ExecContext(ctx, q,
		r.ID.String(),
		r.ProfileID,
		uint8(r.Month),
		uint16(r.Year),
		r.ScanStart,
		r.ScanEnd,
		string(natal),
		string(diag),
		r.GeneratedAt,
	); err != nil {
		s.logError("clickhouse save_report error", r, err)
		return fmt.Errorf("insert report: %w", err)
	}

	if err := s.insertEpisodes(ctx, r); err != nil {
		s.logError("clickhouse save_episodes error", r, err)
		return err
	}
	if s.l != nil {
		s.l.Info("clickhouse save_report ok",
			applogger.String("report", r.ID.String()),
			applogger.String("profile", r.ProfileID),
			applogger.Int("episodes", len(r.Episodes)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// insertEpisodes writes multi-row VALUES batches to limit round trips.
func (s *CHEpisodeStore) insertEpisodes(ctx context.Context, r *models.TransitReport) error {
	for start := 0; start < len(r.Episodes); start += episodeChunkSize {
		end := start + episodeChunkSize
		if end > len(r.Episodes) {
			end = len(r.Episodes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, e := range r.Episodes[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				e.ID.String(),
				r.ID.String(),
				r.ProfileID,
				e.TransitingBody.String(),
				e.Aspect.String(),
				e.NatalBody.String(),
				e.StartDate,
				e.EndDate,
				e.PeakDate,
				e.PeakDeviation,
				r.GeneratedAt,
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (episode_id, report_id, profile_id, transiting, aspect, natal, start_date, end_date, peak_date, peak_deviation, generated_at) VALUES %s",
			s.tables.Episodes, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert episodes: %w", err)
		}
	}
	return nil
}

func (s *CHEpisodeStore) ListEpisodes(ctx context.Context, profileID string, from, to time.Time) ([]models.Episode, error) {
	const qtpl = `
        SELECT episode_id, transiting, aspect, natal, start_date, end_date, peak_date, peak_deviation
        FROM %s FINAL
        WHERE profile_id = ? AND start_date <= ? AND end_date >= ?
        ORDER BY peak_date ASC, transiting ASC, aspect ASC, natal ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.tables.Episodes), profileID, to, from)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []models.Episode
	for rows.Next() {
		var (
			id, tr, asp, natal string
			e                  models.Episode
		)
		if err := rows.Scan(&id, &tr, &asp, &natal, &e.StartDate, &e.EndDate, &e.PeakDate, &e.PeakDeviation); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if e, err = decodeEpisode(e, id, tr, asp, natal); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func decodeEpisode(e models.Episode, id, transiting, aspect, natal string) (models.Episode, error) {
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return e, fmt.Errorf("episode id: %w", err)
	}
	if err = e.TransitingBody.UnmarshalText([]byte(transiting)); err != nil {
		return e, err
	}
	if err = e.Aspect.UnmarshalText([]byte(aspect)); err != nil {
		return e, err
	}
	if err = e.NatalBody.UnmarshalText([]byte(natal)); err != nil {
		return e, err
	}
	e.StartDate, e.EndDate, e.PeakDate = e.StartDate.UTC(), e.EndDate.UTC(), e.PeakDate.UTC()
	return e, nil
}

func (s *CHEpisodeStore) logError(msg string, r *models.TransitReport, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.tables.Episodes),
		applogger.String("report", r.ID.String()),
		applogger.String("profile", r.ProfileID),
		applogger.Error(err),
	)
}

var _ domrepo.EpisodeStore = (*CHEpisodeStore)(nil)

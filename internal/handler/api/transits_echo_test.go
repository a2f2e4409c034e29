package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
	icache "github.com/carlcj05/Astrozee/internal/service/cache"
	"github.com/carlcj05/Astrozee/internal/service/ratelimit"
	"github.com/carlcj05/Astrozee/internal/usecase"
)

const query = "birth=1990-01-01T12:00:00Z&month=3&year=2024&bodies=sun,saturn"

var (
	birth = time.Date(1990, 1, 1, 12, 0, 0, 0, time.UTC)
	exact = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
)

// Transiting Saturn squares natal Sun for the whole scan, exact on March 14.
func fixedSky(calls *int64) domsvc.PositionOracle {
	return domsvc.OracleFunc(func(_ context.Context, instant time.Time, body models.Body) (models.Position, error) {
		atomic.AddInt64(calls, 1)
		natal := instant.Equal(birth)
		switch {
		case body == models.Sun && natal:
			return models.Position{Longitude: 100}, nil
		case body == models.Saturn && natal:
			return models.Position{Longitude: 300}, nil
		case body == models.Sun:
			return models.Position{Longitude: 145, Speed: 1}, nil
		case body == models.Saturn:
			days := math.Abs(instant.Sub(exact).Hours() / 24)
			return models.Position{Longitude: 190 + days*0.01, Speed: 0.03}, nil
		}
		return models.Position{}, errors.New("unsupported body")
	})
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, opts ...HandlerOption) (*echo.Echo, *int64) {
	t.Helper()
	calls := new(int64)
	engine := usecase.NewTransitEngine(fixedSky(calls), usecase.WithWorkers(4))
	h := NewTransitsHandler(usecase.NewTransitReportUseCase(engine), opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, calls
}

func get(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestTransits_ComputesAndCaches(t *testing.T) {
	e, calls := newTestServer(t, WithCache(icache.NewTTLCache(10), time.Minute))

	rec, env := get(e, "/api/transits?"+query)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.TransitReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Episodes, 1)
	ep := report.Episodes[0]
	assert.Equal(t, models.Saturn, ep.TransitingBody)
	assert.Equal(t, models.Square, ep.Aspect)
	assert.Equal(t, models.Sun, ep.NatalBody)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), ep.PeakDate.UTC())
	assert.Equal(t, 213, report.Diagnostics.DaysScanned)

	first := atomic.LoadInt64(calls)
	rec2, env2 := get(e, "/api/transits?"+query)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, first, atomic.LoadInt64(calls))
	assert.JSONEq(t, string(env.Data), string(env2.Data))
}

func TestTransits_BadRequests(t *testing.T) {
	e, calls := newTestServer(t)

	for name, target := range map[string]string{
		"month out of range": "/api/transits?birth=1990-01-01T12:00:00Z&month=13&year=2024",
		"missing birth":      "/api/transits?month=3&year=2024",
		"bad birth":          "/api/transits?birth=yesterday&month=3&year=2024",
		"unknown body":       "/api/transits?birth=1990-01-01T12:00:00Z&month=3&year=2024&bodies=sun,vulcan",
		"unknown zone":       "/api/transits?birth=1990-01-01%2012:00&tz=Mars/Olympus&month=3&year=2024",
	} {
		rec, _ := get(e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Zero(t, atomic.LoadInt64(calls))
}

func TestMood(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := get(e, "/api/transits/mood?"+query)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var mood models.MonthMood
	require.NoError(t, json.Unmarshal(env.Data, &mood))
	assert.Equal(t, 3, mood.Month)
	require.Len(t, mood.Weeks, 1)
	assert.Equal(t, 2, mood.Weeks[0].Week)
	assert.Equal(t, -2, mood.Total)
}

func TestHistory_WithoutStore(t *testing.T) {
	e, _ := newTestServer(t)
	rec, _ := get(e, "/api/transits/history?profile_id=p1")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec, _ = get(e, "/api/transits/history")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogs(t *testing.T) {
	e, _ := newTestServer(t)

	rec, env := get(e, "/api/aspects")
	require.Equal(t, http.StatusOK, rec.Code)
	var defs []models.AspectDefinition
	require.NoError(t, json.Unmarshal(env.Data, &defs))
	require.Len(t, defs, 5)
	assert.Equal(t, models.Square, defs[2].Kind)
	assert.Equal(t, 3.0, defs[2].Orb)

	rec, env = get(e, "/api/bodies")
	require.Equal(t, http.StatusOK, rec.Code)
	var bodies []models.BodyInfo
	require.NoError(t, json.Unmarshal(env.Data, &bodies))
	assert.Len(t, bodies, 12)
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t,
		WithHealthCheck("oracle", func(context.Context) error { return nil }),
		WithHealthCheck("store", func(context.Context) error { return errors.New("down") }),
	)
	rec, env := get(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"oracle":"ok","store":"down"}`, string(env.Data))
}

func TestRateLimit(t *testing.T) {
	e, _ := newTestServer(t, WithRateLimiter(ratelimit.New(0.001, 1)))
	rec, _ := get(e, "/api/bodies")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = get(e, "/api/bodies")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStream(t *testing.T) {
	e, _ := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/transits/stream?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var (
		progress int
		final    models.StreamEvent
	)
	for {
		var ev models.StreamEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type != "progress" {
			final = ev
			break
		}
		progress++
		assert.Equal(t, 213, ev.Total)
	}
	assert.Greater(t, progress, 0)
	require.Equal(t, "report", final.Type, final.Error)
	require.NotNil(t, final.Report)
	assert.Len(t, final.Report.Episodes, 1)
}

func TestStream_ClientCloseCancelsScan(t *testing.T) {
	var startOnce, stopOnce sync.Once
	started := make(chan struct{})
	stopped := make(chan struct{})
	oracle := domsvc.OracleFunc(func(ctx context.Context, instant time.Time, body models.Body) (models.Position, error) {
		if instant.Equal(birth) {
			return models.Position{Longitude: 100}, nil
		}
		startOnce.Do(func() { close(started) })
		<-ctx.Done()
		stopOnce.Do(func() { close(stopped) })
		return models.Position{}, ctx.Err()
	})
	engine := usecase.NewTransitEngine(oracle, usecase.WithWorkers(2))
	e := echo.New()
	NewTransitsHandler(usecase.NewTransitReportUseCase(engine)).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/transits/stream?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not start")
	}
	require.NoError(t, conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second)))
	_ = conn.Close()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("scan still running after the client left")
	}
}

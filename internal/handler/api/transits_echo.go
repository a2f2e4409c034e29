package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	icache "github.com/carlcj05/Astrozee/internal/service/cache"
	"github.com/carlcj05/Astrozee/internal/service/metrics"
	"github.com/carlcj05/Astrozee/internal/service/ratelimit"
	"github.com/carlcj05/Astrozee/internal/usecase"
	xhttp "github.com/carlcj05/Astrozee/pkg/http"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
	"github.com/carlcj05/Astrozee/pkg/util"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// TransitsHandler serves the transit computations over HTTP.
type TransitsHandler struct {
	reports  *usecase.TransitReportUseCase
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	checks   map[string]HealthCheck
	l        *applogger.Logger
	upgrader websocket.Upgrader
}

type HandlerOption func(*TransitsHandler)

// WithCache caches computed reports for ttl. Requests asking for persistence
// always compute.
func WithCache(c icache.BytesCache, ttl time.Duration) HandlerOption {
	return func(h *TransitsHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

func WithRateLimiter(rl *ratelimit.Limiter) HandlerOption {
	return func(h *TransitsHandler) { h.rl = rl }
}

func WithHandlerLogger(l *applogger.Logger) HandlerOption {
	return func(h *TransitsHandler) { h.l = l }
}

func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *TransitsHandler) { h.checks[name] = check }
}

func NewTransitsHandler(reports *usecase.TransitReportUseCase, opts ...HandlerOption) *TransitsHandler {
	metrics.Register()
	h := &TransitsHandler{
		reports: reports,
		checks:  map[string]HealthCheck{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TransitsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", h.rateLimit)
	g.GET("/transits", h.Transits)
	g.GET("/transits/mood", h.Mood)
	g.GET("/transits/history", h.History)
	g.GET("/transits/stream", h.Stream)
	g.GET("/aspects", h.Aspects)
	g.GET("/bodies", h.Bodies)
}

func (h *TransitsHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			if h.l != nil {
				h.l.Warn("transits rate_limited", applogger.String("remote", c.RealIP()))
			}
			return xhttp.TooManyRequestsResponse(c)
		}
		return next(c)
	}
}

// Transits computes the report of one profile for one month.
func (h *TransitsHandler) Transits(c echo.Context) error {
	const endpoint = "transits"
	defer observe(endpoint, time.Now())

	req := &models.TransitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	profile, err := usecase.ProfileFromRequest(*req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	key := cacheKey(endpoint, req)
	if !req.Persist {
		if b, ok := h.cached(c.Request().Context(), endpoint, key); ok {
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}

	report, err := h.reports.Generate(c.Request().Context(), usecase.ReportParams{
		Profile: profile,
		Month:   req.Month,
		Year:    req.Year,
		Persist: req.Persist,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	h.store(c.Request().Context(), key, report)
	return xhttp.SuccessResponse(c, report)
}

// Mood returns the weekly mood bars of the month.
func (h *TransitsHandler) Mood(c echo.Context) error {
	const endpoint = "mood"
	defer observe(endpoint, time.Now())

	req := &models.TransitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	profile, err := usecase.ProfileFromRequest(*req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	key := cacheKey(endpoint, req)
	if b, ok := h.cached(c.Request().Context(), endpoint, key); ok {
		return xhttp.SuccessResponse(c, json.RawMessage(b))
	}

	mood, err := h.reports.Mood(c.Request().Context(), profile, req.Month, req.Year)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	h.store(c.Request().Context(), key, mood)
	return xhttp.SuccessResponse(c, mood)
}

// History lists stored episodes of a profile.
func (h *TransitsHandler) History(c echo.Context) error {
	const endpoint = "history"
	defer observe(endpoint, time.Now())

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	from, err := parseBound(req.From, time.Time{})
	if err != nil {
		return h.badRequest(c, endpoint, xhttp.FieldError("from", err))
	}
	to, err := parseBound(req.To, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return h.badRequest(c, endpoint, xhttp.FieldError("to", err))
	}

	eps, err := h.reports.History(c.Request().Context(), req.ProfileID, from, to)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.ListResponse(c, eps, int64(len(eps)))
}

func (h *TransitsHandler) Aspects(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.reports.Catalog().Definitions())
}

func (h *TransitsHandler) Bodies(c echo.Context) error {
	all := models.AllBodies()
	out := make([]models.BodyInfo, 0, len(all))
	for _, b := range all {
		out = append(out, models.BodyInfo{ID: b, Label: b.Label(), Slow: b.IsSlow()})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, out)
}

// Health runs every registered check; any failure answers 503.
func (h *TransitsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}

func (h *TransitsHandler) badRequest(c echo.Context, endpoint string, verr xhttp.ValidationErrors) error {
	metrics.APIErrors.WithLabelValues(endpoint, "400").Inc()
	if h.l != nil {
		h.l.Debug("transits bad request", applogger.String("endpoint", endpoint), applogger.Any("errors", verr))
	}
	return xhttp.BadRequestResponse(c, verr)
}

func (h *TransitsHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, fmt.Sprint(appErr.Status)).Inc()
	if h.l != nil && appErr.Status >= http.StatusInternalServerError {
		h.l.Error("transits usecase error", applogger.String("endpoint", endpoint), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *TransitsHandler) cached(ctx context.Context, endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(endpoint, "error").Inc()
		if h.l != nil {
			h.l.Warn("transits cache_get_error", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues(endpoint, "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(endpoint, "hit").Inc()
	return b, true
}

func (h *TransitsHandler) store(ctx context.Context, key string, v interface{}) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = h.cache.SetBytes(ctx, key, b, h.cacheTTL)
	}
	if err != nil && h.l != nil {
		h.l.Warn("transits cache_set_error", applogger.String("key", key), applogger.Error(err))
	}
}

var cacheNamespace = uuid.MustParse("8c4b1e2a-3f5d-4a61-b0e7-6d2c9f41a7b3")

// cacheKey covers every field that changes the computed result.
func cacheKey(endpoint string, r *models.TransitRequest) string {
	canon := strings.Join([]string{
		r.ProfileID,
		strings.TrimSpace(r.Birth),
		r.TZ,
		fmt.Sprint(r.TZOffset),
		fmt.Sprintf("%04d-%02d", r.Year, r.Month),
		strings.ToLower(strings.ReplaceAll(r.Bodies, " ", "")),
	}, "|")
	return icache.Key(endpoint, uuid.NewSHA1(cacheNamespace, []byte(canon)).String())
}

func parseBound(s string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	if t, ok := util.ParseTime(s); ok {
		return t.UTC(), nil
	}
	return util.ParseLocalDateTime(s)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrInvalidWindow),
		errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrUnknownBody),
		errors.Is(err, models.ErrMissingBirthInstant):
		return xhttp.NewAppError("ERR_INVALID_INPUT", "", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrNoSamples):
		return xhttp.UnavailableError("ERR_NO_SAMPLES", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrStoreDisabled):
		return xhttp.NotImplementedError("ERR_STORE_DISABLED", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.TimeoutError("computation timed out").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

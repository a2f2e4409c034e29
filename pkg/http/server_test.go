package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

type routes func(e *echo.Echo)

func (r routes) RegisterRoutes(e *echo.Echo) { r(e) }

func testServer() *Server {
	return NewServer(routes(func(e *echo.Echo) {
		e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, map[string]int{"n": 1}) })
		e.GET("/boom", func(echo.Context) error { panic("boom") })
		e.GET("/app-error", func(c echo.Context) error {
			return AppErrorResponse(c, BadRequestError("bad month").WithParam("month", 13))
		})
	}), WithServerLogger(applogger.NewNop()))
}

func serve(s *Server, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_Envelope(t *testing.T) {
	rec := serve(testServer(), http.MethodGet, "/ok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"n":1}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_AppError(t *testing.T) {
	rec := serve(testServer(), http.MethodGet, "/app-error", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Data []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_BAD_REQUEST", body.Data[0].Code)
	assert.Equal(t, 13.0, body.Data[0].Params["month"])
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Month int    `query:"month" validate:"required,gte=1,lte=12"`
		Mode  string `json:"mode" default:"fast" validate:"oneof=fast slow"`
	}
	r := &req{Month: 13}
	errs := ValidateStruct(t.Context(), r)
	require.Len(t, errs, 1)
	assert.Equal(t, "month", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "12", errs[0].Params["max"])
	assert.Equal(t, "fast", r.Mode)
	assert.EqualError(t, errs, "month must be at most 12")

	assert.Nil(t, ValidateStruct(t.Context(), &req{Month: 3}))
}

func TestServer_RecoversPanic(t *testing.T) {
	rec := serve(testServer(), http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	rec := serve(testServer(), http.MethodOptions, "/ok", map[string]string{
		echo.HeaderOrigin: "https://astro.example",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://astro.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodGet)
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := testServer()
	serve(s, http.MethodGet, "/ok", nil)
	rec := serve(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "astrozee_http_requests_total")
}

func TestClient_GetData(t *testing.T) {
	s := testServer()
	srv := httptest.NewServer(s.Echo())
	defer srv.Close()

	var out map[string]int
	require.NoError(t, NewClient(srv.URL).GetData(t.Context(), "/ok", nil, &out))
	assert.Equal(t, map[string]int{"n": 1}, out)

	err := NewClient(srv.URL).GetData(t.Context(), "/app-error", nil, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

// Package api provides the HTTP REST API server for quantdesk.
//
// It exposes the research pipelines as JSON endpoints under /api/v1 plus a
// few SVG chart renderings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/internal/chart"
	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/report"
	"github.com/seenimoa/quantdesk/internal/research"
	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// requestTimeout bounds every upstream research call.
const requestTimeout = 30 * time.Second

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	svc    *research.Service
	news   *datasource.News
	log    zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
// news may be nil, in which case the headline endpoint is not mounted.
func NewServer(cfg *config.Config, svc *research.Service, news *datasource.News, log zerolog.Logger) *Server {
	srv := &Server{
		cfg:  cfg,
		svc:  svc,
		news: news,
		log:  log.With().Str("component", "api").Logger(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT or SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/quote/{symbol}", s.handleQuote)

		r.Route("/options/{symbol}", func(r chi.Router) {
			r.Get("/summary", s.handleOptionsSummary)
			r.Get("/horizon", s.handleHorizon)
			r.Get("/greeks", s.handleGreeks)
			r.Get("/skew", s.handleSkew)
			r.Get("/surface", s.handleSurface)
		})

		r.Get("/hv/{symbol}", s.handleHV)
		r.Get("/sector/{symbol}", s.handleSector)
		r.Get("/pe/{symbol}", s.handlePE)

		r.Get("/chart/{symbol}/greeks.svg", s.handleGreeksChart)
		r.Get("/chart/{symbol}/skew.svg", s.handleSkewChart)
		r.Get("/chart/{symbol}/surface.svg", s.handleSurfaceChart)

		r.Get("/report/{symbol}", s.handleReport)

		if s.news != nil {
			r.Get("/news/{symbol}", s.handleNews)
		}

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard API response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GreeksResponse carries both sides of a Greeks series.
type GreeksResponse struct {
	Calls models.GreeksSeries `json:"calls"`
	Puts  models.GreeksSeries `json:"puts"`
}

// SkewResponse is a skew report with a null historical volatility when it
// is unavailable.
type SkewResponse struct {
	Symbol               string             `json:"symbol"`
	Spot                 float64            `json:"spot"`
	Target               string             `json:"target"`
	Right                models.Right       `json:"right"`
	Points               []models.SkewPoint `json:"points"`
	HistoricalVolatility *float64           `json:"historical_volatility"`
}

// SurfaceResponse is an interpolated surface. Cells outside the convex
// hull of the quotes are null.
type SurfaceResponse struct {
	Symbol      string       `json:"symbol"`
	StrikeAxis  []float64    `json:"strike_axis"`
	DateAxis    []string     `json:"date_axis"`
	IV          [][]*float64 `json:"iv"`
	Expirations []string     `json:"expirations"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]string{
			"status":   "ok",
			"provider": s.svc.Provider.Name(),
			"time":     time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	profile, err := datasource.FetchProfile(ctx, s.svc.Provider, symbolParam(r))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: profile})
}

func (s *Server) handleOptionsSummary(w http.ResponseWriter, r *http.Request) {
	factor, err := floatQuery(r, "range", s.cfg.Options.StrikeRangeFactor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := s.svc.OptionsSummary(ctx, symbolParam(r), factor)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleHorizon(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", s.cfg.Options.HorizonDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := s.svc.Horizon(ctx, symbolParam(r), days)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summary})
}

func (s *Server) handleGreeks(w http.ResponseWriter, r *http.Request) {
	rate, err := floatQuery(r, "rate", s.cfg.Options.RiskFreeRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	calls, puts, err := s.svc.GreeksSeries(ctx, symbolParam(r), rate)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: GreeksResponse{Calls: calls, Puts: puts}})
}

func (s *Server) handleSkew(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.skew(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: SkewResponse{
		Symbol:               rep.Symbol,
		Spot:                 rep.Spot,
		Target:               rep.Target.Format(models.DateLayout),
		Right:                rep.Skew.Right,
		Points:               rep.Skew.Points,
		HistoricalVolatility: nullable(rep.HistoricalVolatility),
	}})
}

// skew parses the skew query and runs the pipeline, writing any error.
func (s *Server) skew(w http.ResponseWriter, r *http.Request) (*research.SkewReport, bool) {
	q := r.URL.Query()
	target, err := time.Parse(models.DateLayout, q.Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "target must be a YYYY-MM-DD date")
		return nil, false
	}
	right := models.Call
	if v := q.Get("right"); v != "" {
		if right, err = models.ParseRight(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
	}
	window, err := intQuery(r, "window", s.cfg.Options.SkewWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := s.svc.Skew(ctx, symbolParam(r), target, right, window)
	if err != nil {
		s.writeFailure(w, err)
		return nil, false
	}
	return rep, true
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	symbol := symbolParam(r)
	grid, err := s.svc.Surface(ctx, symbol)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: surfaceResponse(symbol, grid)})
}

func surfaceResponse(symbol string, g *surface.Grid) SurfaceResponse {
	resp := SurfaceResponse{
		Symbol:      symbol,
		StrikeAxis:  g.StrikeAxis,
		DateAxis:    make([]string, len(g.ExpirationAxis)),
		IV:          make([][]*float64, len(g.IV)),
		Expirations: make([]string, len(g.Expirations)),
	}
	for i, d := range g.ExpirationAxis {
		resp.DateAxis[i] = surface.FromDayNumber(d).Format(models.DateLayout)
	}
	for i, row := range g.IV {
		resp.IV[i] = make([]*float64, len(row))
		for j, v := range row {
			resp.IV[i][j] = nullable(v)
		}
	}
	for i, e := range g.Expirations {
		resp.Expirations[i] = e.Format(models.DateLayout)
	}
	return resp
}

func (s *Server) handleHV(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1y"
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := s.svc.HV(ctx, symbolParam(r), period)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleSector(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := s.svc.SectorHistory(ctx, symbolParam(r), rangeQuery(r, "1y"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handlePE(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	points, err := s.svc.PERatio(ctx, symbolParam(r), rangeQuery(r, "1y"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: points})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	headlines, err := s.news.Headlines(ctx, symbolParam(r), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: headlines})
}

// ════════════════════════════════════════════════════════════════════
// Charts
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleGreeksChart(w http.ResponseWriter, r *http.Request) {
	right := models.Call
	if v := r.URL.Query().Get("right"); v != "" {
		var err error
		if right, err = models.ParseRight(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	rate, err := floatQuery(r, "rate", s.cfg.Options.RiskFreeRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	calls, puts, err := s.svc.GreeksSeries(ctx, symbolParam(r), rate)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	series := calls
	if right == models.Put {
		series = puts
	}
	writeSVG(w, chart.GreeksChart(series, 0))
}

func (s *Server) handleSkewChart(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.skew(w, r)
	if !ok {
		return
	}
	writeSVG(w, chart.SkewChart(rep.Skew, rep.Symbol, rep.HistoricalVolatility, chart.Config{}))
}

func (s *Server) handleSurfaceChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	symbol := symbolParam(r)
	grid, err := s.svc.Surface(ctx, symbol)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeSVG(w, chart.SurfaceChart(grid, symbol, chart.Config{}))
}

// handleReport renders the HTML research report. ?target= sets the skew
// target date, default today.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	target := time.Now()
	if v := r.URL.Query().Get("target"); v != "" {
		var err error
		if target, err = time.Parse(models.DateLayout, v); err != nil {
			writeError(w, http.StatusBadRequest, "target must be a YYYY-MM-DD date")
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*requestTimeout)
	defer cancel()

	in, err := report.Collect(ctx, s.svc, symbolParam(r), target, report.DefaultConfig())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	html, err := report.GenerateHTML(in, report.DefaultConfig())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
}

func floatQuery(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New(name + " must be a number")
	}
	return f, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

// rangeQuery reads either start/end dates or a period, falling back to def.
func rangeQuery(r *http.Request, def string) datasource.Range {
	q := r.URL.Query()
	if start, err := time.Parse(models.DateLayout, q.Get("start")); err == nil {
		end := time.Now()
		if e, err := time.Parse(models.DateLayout, q.Get("end")); err == nil {
			end = e
		}
		return datasource.DateRange(start, end)
	}
	period := q.Get("period")
	if period == "" {
		period = def
	}
	return datasource.PeriodRange(period, "1d")
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var httpErr *datasource.ErrHTTP
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound),
		errors.Is(err, research.ErrNoExpirations),
		errors.Is(err, research.ErrNoSectorETF):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, surface.ErrInsufficientVariation),
		errors.Is(err, surface.ErrNonFiniteIV),
		errors.Is(err, research.ErrInsufficientHistory),
		errors.Is(err, technical.ErrNoEarnings),
		errors.Is(err, datasource.ErrNotSupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, chain.ErrMissingPrice), errors.Is(err, datasource.ErrNoPrice), errors.As(err, &httpErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

// writeJSON encodes v before touching the response so an unencodable value
// (NaN, Inf) becomes a 500 envelope instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(APIResponse{Success: false, Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func writeSVG(w http.ResponseWriter, svg string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

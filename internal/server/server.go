// Package server exposes the guide read API and the archival operations over
// HTTP. It is thin glue: windowing, templating, and persistence live in
// their own packages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/guidevault/guidevault/internal/cache"
	"github.com/guidevault/guidevault/internal/config"
	"github.com/guidevault/guidevault/internal/guide"
	"github.com/guidevault/guidevault/internal/models"
	"github.com/guidevault/guidevault/internal/service"
	"github.com/guidevault/guidevault/internal/store"
	"github.com/guidevault/guidevault/internal/vod"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	ingestor *service.Ingestor
	rds      *cache.Redis // nil when REDIS_URL is not set
	mux      *http.ServeMux
}

// New creates a Server and registers routes.
// rds may be nil when Redis is not configured; VOD publishing then responds 503.
func New(s store.Store, cfg *config.Config, ingestor *service.Ingestor, rds *cache.Redis) *Server {
	srv := &Server{store: s, cfg: cfg, ingestor: ingestor, rds: rds, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Guide
	s.mux.HandleFunc("GET /api/guide/{provider}", s.handleGuide)

	// Channels and categories
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("PATCH /api/channels/{id}/archived", s.handleSetChannelArchived)
	s.mux.HandleFunc("PATCH /api/channels/{id}/playback", s.handleSetChannelPlayback)

	// Archival / VOD
	s.mux.HandleFunc("PATCH /api/programs/{id}/archived", s.handleSetProgramArchived)
	s.mux.HandleFunc("GET /api/archived", s.handleListArchived)
	s.mux.HandleFunc("POST /api/vod/{id}/upload", s.handleVodUpload)
	s.mux.HandleFunc("DELETE /api/vod/{id}", s.handleVodDelete)

	// Pipeline
	s.mux.HandleFunc("POST /api/ingest", s.handleIngest)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// guideChannel is one channel row of the guide response, carrying the
// requested day's schedule plus the previous local day for overnight
// programs.
type guideChannel struct {
	models.Channel
	Programs         []models.Program `json:"programs"`
	PreviousPrograms []models.Program `json:"previous_programs"`
}

// handleGuide serves a provider's schedule for one viewer-local calendar
// day. All stored times are UTC; the viewer timezone only shapes the query
// window, never the stored rows.
func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	provider := models.ProviderOrDefault(r.PathValue("provider"))
	q := r.URL.Query()

	tzName := q.Get("tz")
	if tzName == "" {
		tzName = s.cfg.GuideTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown timezone: %s", tzName))
		return
	}

	date := guide.Today(loc)
	if v := q.Get("date"); v != "" {
		date, err = guide.ParseDate(v)
		if err != nil {
			// Malformed date input is a hard not-found, not a silent default.
			writeErr(w, http.StatusNotFound, err)
			return
		}
	}

	categoryIDs, err := parseIDList(q.Get("categories"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	channelIDs, err := parseIDList(q.Get("channels"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	chFilter := store.ChannelFilter{Provider: provider, IDs: channelIDs}
	if q.Get("archived") == "1" || q.Get("archived") == "true" {
		archived := true
		chFilter.Archived = &archived
	}
	channels, err := s.store.ListChannels(r.Context(), chFilter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	day := guide.DayWindow(date, loc)
	prev := guide.PreviousDayWindow(date, loc)

	current, err := s.programsByChannel(r.Context(), provider, day, categoryIDs)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	previous, err := s.programsByChannel(r.Context(), provider, prev, categoryIDs)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	items := make([]guideChannel, 0, len(channels))
	for _, ch := range channels {
		gc := guideChannel{
			Channel:          ch,
			Programs:         current[ch.ID],
			PreviousPrograms: previous[ch.ID],
		}
		if gc.Programs == nil {
			gc.Programs = []models.Program{}
		}
		if gc.PreviousPrograms == nil {
			gc.PreviousPrograms = []models.Program{}
		}
		// A category filter narrows the channel list to channels that
		// still have something to show.
		if len(categoryIDs) > 0 && len(gc.Programs) == 0 && len(gc.PreviousPrograms) == 0 {
			continue
		}
		items = append(items, gc)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": provider,
		"date":     fmt.Sprintf("%04d-%02d-%02d", date.Year, date.Month, date.Day),
		"timezone": tzName,
		"from":     day.From,
		"to":       day.To,
		"channels": items,
	})
}

// programsByChannel runs one window query and groups the rows by channel.
func (s *Server) programsByChannel(ctx context.Context, provider string, w guide.Window, categoryIDs []int64) (map[int64][]models.Program, error) {
	programs, err := s.store.ListPrograms(ctx, store.ProgramFilter{
		From:        w.From,
		To:          w.To,
		Provider:    provider,
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		return nil, err
	}
	byChannel := make(map[int64][]models.Program)
	for _, p := range programs {
		byChannel[p.ChannelID] = append(byChannel[p.ChannelID], p)
	}
	return byChannel, nil
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ChannelFilter{}
	if v := q.Get("provider"); v != "" {
		filter.Provider = models.ProviderOrDefault(v)
	}
	if v := q.Get("archived"); v != "" {
		switch v {
		case "true", "1":
			archived := true
			filter.Archived = &archived
		case "false", "0":
			archived := false
			filter.Archived = &archived
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid archived: %s (use true or false)", v))
			return
		}
	}
	channels, err := s.store.ListChannels(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type archivedRequest struct {
	Archived bool `json:"archived"`
}

func (s *Server) handleSetChannelArchived(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	var req archivedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.store.SetChannelArchived(r.Context(), channelID, req.Archived); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": channelID, "archived": req.Archived})
}

type playbackRequest struct {
	URL                string `json:"url"`
	Category           string `json:"category"`
	AdditionalCategory string `json:"additional_category"`
}

func (s *Server) handleSetChannelPlayback(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	var req playbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	settings := models.ChannelSettings{
		Category:           req.Category,
		AdditionalCategory: req.AdditionalCategory,
	}
	if err := s.store.UpdateChannelPlayback(r.Context(), channelID, req.URL, settings); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	ch, err := s.store.GetChannelByID(r.Context(), channelID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleSetProgramArchived flips a program's archival state. Archiving
// renders the VOD manifest into the content directory and records the
// derived playback path; un-archiving flips the status flag but keeps the
// record, so the path stays stable if the program is re-archived.
func (s *Server) handleSetProgramArchived(w http.ResponseWriter, r *http.Request) {
	programID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	var req archivedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	program, err := s.store.GetProgramByID(r.Context(), programID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("program %d not found", programID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	channel, err := s.store.GetChannelByID(r.Context(), program.ChannelID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	path := vod.PlaybackPath(program)
	if req.Archived {
		doc := vod.Render(vod.Input{
			Program: program,
			Channel: channel,
			Defaults: vod.Defaults{
				Category:           s.cfg.VodDefaultCategory,
				AdditionalCategory: s.cfg.VodDefaultAddlCategory,
			},
		})
		if _, err := vod.WriteDocument(s.cfg.VodDir, program.ID, doc); err != nil {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("write vod document: %w", err))
			return
		}
	}

	ap := &models.ArchivedProgram{ProgramID: program.ID, Path: path, Status: req.Archived}
	ap.ID, err = s.store.UpsertArchivedProgram(r.Context(), ap)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ap)
}

func (s *Server) handleListArchived(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1" || r.URL.Query().Get("active") == "true"
	items, err := s.store.ListArchivedPrograms(r.Context(), activeOnly)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []models.ArchivedProgram{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleVodUpload queues the external upload workflow for an archived
// program. The worker invokes the publisher by id only.
func (s *Server) handleVodUpload(w http.ResponseWriter, r *http.Request) {
	s.enqueueVodJob(w, r, cache.VodActionUpload)
}

func (s *Server) handleVodDelete(w http.ResponseWriter, r *http.Request) {
	s.enqueueVodJob(w, r, cache.VodActionDelete)
}

func (s *Server) enqueueVodJob(w http.ResponseWriter, r *http.Request, action string) {
	if s.rds == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("vod publishing not configured (REDIS_URL not set)"))
		return
	}
	archivedID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	job := cache.VodJob{ArchivedID: archivedID, Action: action}
	if err := cache.Enqueue(r.Context(), s.rds, cache.VodQueue, job); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleIngest triggers a batch run in the background. With Redis available
// the run is guarded by a distributed lock so two batches cannot overlap and
// double the request rate against the upstream host.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.rds != nil && cache.IsLocked(r.Context(), s.rds, cache.IngestLock) {
		writeErr(w, http.StatusConflict, fmt.Errorf("ingest batch already running"))
		return
	}

	// Background context: a full batch takes far longer than any request
	// timeout.
	go func() {
		ctx := context.Background()
		if s.rds != nil {
			unlock, err := cache.TryLock(ctx, s.rds, cache.IngestLock, time.Hour)
			if err != nil {
				log.Printf("ingest: %v", err)
				return
			}
			defer unlock()
		}
		report, err := s.ingestor.Run(ctx)
		if err != nil {
			log.Printf("ingest: %v", err)
			return
		}
		log.Printf("ingest: %d/%d feeds, %d channels, %d programs, %d failures",
			report.Processed, report.Total, report.Channels, report.Programs, len(report.Failures))
		for _, f := range report.Failures {
			log.Printf("ingest skip: %s", f)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		// Color the status code for terminal readability.
		statusColor := colorForStatus(sw.status)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, sw.status, "\x1b[0m",
			formatDuration(time.Since(start)),
			r.URL.Path,
		)
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodPatch, http.MethodPut:
		return "\x1b[33m" // yellow
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

// parseIDList parses a comma-separated id list query value.
func parseIDList(v string) ([]int64, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id: %s", p)
		}
		out = append(out, id)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

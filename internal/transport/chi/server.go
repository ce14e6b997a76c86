package chi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/search/mode"
	"github.com/blinderchief/visiolingua/internal/domain/search/request"
	"github.com/blinderchief/visiolingua/internal/domain/search/result"
	"github.com/blinderchief/visiolingua/internal/logger"
	contentuc "github.com/blinderchief/visiolingua/internal/usecase/content"
	healthuc "github.com/blinderchief/visiolingua/internal/usecase/health"
	searchuc "github.com/blinderchief/visiolingua/internal/usecase/search"
	storyuc "github.com/blinderchief/visiolingua/internal/usecase/story"
)

// DefaultMaxUploadBytes bounds multipart uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

const uploadMessage = "Content uploaded successfully"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface on top of the use cases.
type Server struct {
	content        *contentuc.Service
	search         *searchuc.Service
	stories        *storyuc.Service
	health         *healthuc.Service
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	content *contentuc.Service,
	search *searchuc.Service,
	stories *storyuc.Service,
	health *healthuc.Service,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		content:        content,
		search:         search,
		stories:        stories,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrContentNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, ErrorCodeGenerationProvider),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// Upload handles POST /upload.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}

	file, name, err := s.formFile(r, false)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}

	id, err := s.content.Upload(r.Context(), contentuc.Upload{
		UserID:   r.FormValue("user_id"),
		Lang:     langOrDefault(r.FormValue("lang")),
		Text:     r.FormValue("text"),
		File:     file,
		FileName: name,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{ID: id, Message: uploadMessage})
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := request.NewText(req.Query, req.UserID, req.Lang, mode.Mode(req.Mode))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ans, err := s.search.Query(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerToResponse(ans))
}

// QueryImage handles POST /query-image.
func (s *Server) QueryImage(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}

	file, _, err := s.formFile(r, true)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}

	q, err := request.NewImage(file, r.FormValue("user_id"), r.FormValue("lang"), r.FormValue("question"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ans, err := s.search.QueryImage(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerToResponse(ans))
}

// GenerateStory handles POST /generate-story.
func (s *Server) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	st, err := request.NewStory(req.Query, req.UserID, req.Lang, derefString(req.ContentID))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	story := s.stories.Generate(r.Context(), st)
	writeJSON(w, http.StatusOK, StoryResponse{
		Story:     story.Text,
		Lang:      story.Lang,
		Grounded:  story.Grounded,
		ContentID: story.ContentID,
	})
}

// GetHistory handles GET /history/{user_id}.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, userID string, params GetHistoryParams) {
	limit := 0
	if params.Limit != nil {
		if *params.Limit <= 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "limit must be positive")
			return
		}
		limit = *params.Limit
	}

	recs := s.content.History(r.Context(), userID, limit)
	items := make([]HistoryItem, len(recs))
	for i, rec := range recs {
		items[i] = historyItem(rec)
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: items})
}

// DeleteHistory handles DELETE /history/{user_id}.
func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request, userID string) {
	n, err := s.content.Delete(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteHistoryResponse{Deleted: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

var errFileTooLarge = errors.New("file too large")

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	tooLarge := func() bool {
		writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		return false
	}
	if r.ContentLength > s.maxUploadBytes {
		return tooLarge()
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return tooLarge()
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid multipart form: "+err.Error())
		return false
	}
	return true
}

// formFile reads the "file" part. A missing optional file yields nil bytes.
func (s *Server) formFile(r *http.Request, required bool) ([]byte, string, error) {
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) && !required {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: file: %w", domain.ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > s.maxUploadBytes {
		return nil, "", errFileTooLarge
	}
	return raw, hdr.Filename, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	default:
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrContentNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
		domain.ErrStoreUnavailable,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}

func answerToResponse(ans searchuc.Answer) QueryResponse {
	items := make([]ResultItem, len(ans.Results))
	for i, r := range ans.Results {
		items[i] = resultItem(r)
	}
	return QueryResponse{
		Results:    items,
		Generation: ans.Generation,
		Metrics: QueryMetrics{
			CosineAvg: ans.Metrics.CosineAvg,
			BLEUScore: ans.Metrics.BLEU,
			Latency:   ans.Metrics.LatencyMs,
			Hybrid:    ans.Metrics.Hybrid,
		},
		Hint: ans.Hint,
	}
}

func resultItem(r result.Result) ResultItem {
	rec := r.Record()
	item := ResultItem{
		ID:           r.ID(),
		UserID:       rec.UserID(),
		Type:         string(rec.Kind()),
		Lang:         rec.Lang(),
		Content:      rec.Content(),
		Score:        r.Score(),
		Timestamp:    timestamp(rec),
		OriginalName: optional(rec.OriginalName()),
	}
	if rec.HasImage() {
		item.ImageB64 = base64.StdEncoding.EncodeToString(rec.ImageBytes())
	}
	return item
}

func historyItem(rec domcontent.Record) HistoryItem {
	return HistoryItem{
		ID:           rec.ID(),
		Type:         string(rec.Kind()),
		Lang:         rec.Lang(),
		Timestamp:    timestamp(rec),
		OriginalName: optional(rec.OriginalName()),
	}
}

func timestamp(rec domcontent.Record) *string {
	if !rec.HasTimestamp() {
		return nil
	}
	ts := rec.Timestamp().UTC().Format(time.RFC3339Nano)
	return &ts
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func langOrDefault(lang string) string {
	if lang == "" {
		return request.DefaultLang
	}
	return lang
}

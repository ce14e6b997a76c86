package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is a machine-readable error code in an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodePayloadTooLarge    ErrorCode = "payload_too_large"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeRateLimited        ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProvider  ErrorCode = "embedding_provider_error"
	ErrorCodeGenerationProvider ErrorCode = "generation_provider_error"
	ErrorCodeStoreUnavailable   ErrorCode = "store_unavailable"
	ErrorCodeNotImplemented     ErrorCode = "not_implemented"
	ErrorCodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query  string `json:"query"`
	Lang   string `json:"lang"`
	UserID string `json:"user_id"`
	Mode   string `json:"mode,omitempty"`
}

// ResultItem is one ranked record.
type ResultItem struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	Type         string  `json:"type"`
	Lang         string  `json:"lang"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	Timestamp    *string `json:"timestamp,omitempty"`
	OriginalName *string `json:"original_name,omitempty"`
	ImageB64     string  `json:"image_b64,omitempty"`
}

// QueryMetrics reports the quality of one ranking pass.
type QueryMetrics struct {
	CosineAvg float64 `json:"cosine_avg"`
	BLEUScore float64 `json:"bleu_score"`
	Latency   int64   `json:"latency"`
	Hybrid    bool    `json:"hybrid,omitempty"`
}

// QueryResponse is returned by POST /query and POST /query-image.
type QueryResponse struct {
	Results    []ResultItem `json:"results"`
	Generation string       `json:"generation"`
	Metrics    QueryMetrics `json:"metrics"`
	Hint       string       `json:"hint,omitempty"`
}

// StoryRequest is the body of POST /generate-story.
type StoryRequest struct {
	Query     string  `json:"query"`
	Lang      string  `json:"lang"`
	UserID    string  `json:"user_id"`
	ContentID *string `json:"content_id,omitempty"`
}

// StoryResponse is returned by POST /generate-story.
type StoryResponse struct {
	Story     string `json:"story"`
	Lang      string `json:"lang"`
	Grounded  bool   `json:"grounded"`
	ContentID string `json:"content_id,omitempty"`
}

// HistoryItem summarizes one stored record.
type HistoryItem struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Lang         string  `json:"lang"`
	Timestamp    *string `json:"timestamp"`
	OriginalName *string `json:"original_name"`
}

// HistoryResponse is returned by GET /history/{user_id}.
type HistoryResponse struct {
	History []HistoryItem `json:"history"`
}

// DeleteHistoryResponse is returned by DELETE /history/{user_id}.
type DeleteHistoryResponse struct {
	Deleted int `json:"deleted"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetHistoryParams are the query parameters of GET /history/{user_id}.
type GetHistoryParams struct {
	Limit *int `json:"limit,omitempty"`
}

// ServerInterface lists every HTTP operation.
type ServerInterface interface {
	Upload(w http.ResponseWriter, r *http.Request)
	Query(w http.ResponseWriter, r *http.Request)
	QueryImage(w http.ResponseWriter, r *http.Request)
	GenerateStory(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request, userID string, params GetHistoryParams)
	DeleteHistory(w http.ResponseWriter, r *http.Request, userID string)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ServerOptions configures route registration.
type ServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamError reports a path or query parameter that failed to bind.
type InvalidParamError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamError) Unwrap() error { return e.Err }

// HandlerWithOptions registers every operation of si on a chi router.
func HandlerWithOptions(si ServerInterface, options ServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	onError := options.ErrorHandlerFunc
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	w := &wrapper{handler: si, onError: onError}

	r.Post("/upload", si.Upload)
	r.Post("/query", si.Query)
	r.Post("/query-image", si.QueryImage)
	r.Post("/generate-story", si.GenerateStory)
	r.Get("/history/{user_id}", w.getHistory)
	r.Delete("/history/{user_id}", w.deleteHistory)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

type wrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (w *wrapper) getHistory(rw http.ResponseWriter, r *http.Request) {
	userID, ok := w.userID(rw, r)
	if !ok {
		return
	}

	var params GetHistoryParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		w.onError(rw, r, &InvalidParamError{ParamName: "limit", Err: err})
		return
	}
	w.handler.GetHistory(rw, r, userID, params)
}

func (w *wrapper) deleteHistory(rw http.ResponseWriter, r *http.Request) {
	userID, ok := w.userID(rw, r)
	if !ok {
		return
	}
	w.handler.DeleteHistory(rw, r, userID)
}

func (w *wrapper) userID(rw http.ResponseWriter, r *http.Request) (string, bool) {
	var userID string
	err := runtime.BindStyledParameterWithOptions("simple", "user_id", chi.URLParam(r, "user_id"), &userID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		w.onError(rw, r, &InvalidParamError{ParamName: "user_id", Err: err})
		return "", false
	}
	return userID, true
}

package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/quality"
	"github.com/blinderchief/visiolingua/internal/repository/memory"
	"github.com/blinderchief/visiolingua/internal/retry"
	"github.com/blinderchief/visiolingua/internal/usecase/candidates"
	contentuc "github.com/blinderchief/visiolingua/internal/usecase/content"
	"github.com/blinderchief/visiolingua/internal/usecase/embedding"
	"github.com/blinderchief/visiolingua/internal/usecase/generation"
	healthuc "github.com/blinderchief/visiolingua/internal/usecase/health"
	searchuc "github.com/blinderchief/visiolingua/internal/usecase/search"
	storyuc "github.com/blinderchief/visiolingua/internal/usecase/story"
	"github.com/blinderchief/visiolingua/internal/usecase/translate"
)

// --- Fakes ---

// keywordEmbedder maps texts mentioning a bicycle to one axis and everything else to the other.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.Contains(strings.ToLower(text), "bicycle") {
		return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
}

func (keywordEmbedder) EmbedImage(context.Context, []byte) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, p prompt.Prompt) (string, error) {
	if p.HasImage() {
		return "a red bicycle", nil
	}
	return "generated answer", nil
}

func newTestHandler(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	log := zap.NewNop()
	repo := memory.New()
	cands := candidates.New(repo, log)
	spaces := embedding.NewSpaces(keywordEmbedder{}, nil, keywordEmbedder{}, 2, log)
	gen := generation.New(echoGenerator{}, retry.Policy{Attempts: 1}, log)

	search := searchuc.New(cands, spaces, gen, translate.New(nil, log),
		quality.NewCollector(nil), searchuc.DefaultOptions(), log)
	stories := storyuc.New(storyuc.NewSelector(cands, 0, log), gen)
	content := contentuc.New(repo, cands, spaces, gen, log)
	health := healthuc.New(repo)

	server := NewServer(content, search, stories, health, maxUpload, log)
	return HandlerWithOptions(server, ServerOptions{
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		},
	})
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "bike.png")
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		_, _ = fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(8, 8, color.RGBA{R: 200, A: 255}), imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, h http.Handler, req *http.Request, wantStatus int, out any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != wantStatus {
		t.Fatalf("%s %s: got %d, want %d (body %s)", req.Method, req.URL.Path, rr.Code, wantStatus, rr.Body.String())
	}
	if out != nil {
		if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func upload(t *testing.T, h http.Handler, fields map[string]string, file []byte) UploadResponse {
	t.Helper()
	body, ct := multipartBody(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	var resp UploadResponse
	do(t, h, req, http.StatusOK, &resp)
	return resp
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- Tests ---

func TestServer_UploadQueryHistoryDelete(t *testing.T) {
	h := newTestHandler(t, 0)

	up := upload(t, h, map[string]string{"user_id": "u1", "lang": "en", "text": "my red bicycle"}, nil)
	if up.ID == "" || up.Message != uploadMessage {
		t.Fatalf("unexpected upload response %+v", up)
	}
	upload(t, h, map[string]string{"user_id": "u2", "text": "their bicycle"}, nil)

	var q QueryResponse
	do(t, h, jsonRequest(t, http.MethodPost, "/query", QueryRequest{Query: "bicycle", Lang: "en", UserID: "u1"}), http.StatusOK, &q)
	if len(q.Results) != 1 || q.Results[0].ID != up.ID || q.Results[0].UserID != "u1" {
		t.Fatalf("unexpected results %+v", q.Results)
	}
	if q.Generation != "generated answer" || q.Metrics.CosineAvg < 0.99 || q.Hint != "" {
		t.Errorf("unexpected answer %+v", q)
	}

	var hist HistoryResponse
	do(t, h, httptest.NewRequest(http.MethodGet, "/history/u1?limit=5", http.NoBody), http.StatusOK, &hist)
	if len(hist.History) != 1 || hist.History[0].Type != "text" || hist.History[0].Timestamp == nil {
		t.Fatalf("unexpected history %+v", hist.History)
	}

	var del DeleteHistoryResponse
	do(t, h, httptest.NewRequest(http.MethodDelete, "/history/u1", http.NoBody), http.StatusOK, &del)
	if del.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", del.Deleted)
	}

	do(t, h, httptest.NewRequest(http.MethodGet, "/history/u1", http.NoBody), http.StatusOK, &hist)
	if len(hist.History) != 0 {
		t.Errorf("history not empty after delete: %+v", hist.History)
	}
}

func TestServer_QueryNoMatchHasHint(t *testing.T) {
	h := newTestHandler(t, 0)

	var q QueryResponse
	do(t, h, jsonRequest(t, http.MethodPost, "/query", QueryRequest{Query: "anything", UserID: "u1"}), http.StatusOK, &q)
	if len(q.Results) != 0 || q.Hint == "" {
		t.Errorf("expected empty results with hint, got %+v", q)
	}
}

func TestServer_HybridEmptyCorpus(t *testing.T) {
	h := newTestHandler(t, 0)

	var q QueryResponse
	do(t, h, jsonRequest(t, http.MethodPost, "/query",
		QueryRequest{Query: "anything", UserID: "u1", Mode: "hybrid"}), http.StatusOK, &q)
	if q.Hint != searchuc.NoContentHint || !q.Metrics.Hybrid || q.Metrics.Latency != 0 {
		t.Errorf("expected no-content answer, got %+v", q)
	}
}

func TestServer_ImageUploadAndQuery(t *testing.T) {
	h := newTestHandler(t, 0)
	img := pngBytes(t)

	up := upload(t, h, map[string]string{"user_id": "u1"}, img)

	body, ct := multipartBody(t, map[string]string{"user_id": "u1", "question": "what is it?"}, img)
	req := httptest.NewRequest(http.MethodPost, "/query-image", body)
	req.Header.Set("Content-Type", ct)

	var q QueryResponse
	do(t, h, req, http.StatusOK, &q)
	if len(q.Results) != 1 || q.Results[0].ID != up.ID || q.Results[0].ImageB64 == "" {
		t.Fatalf("unexpected results %+v", q.Results)
	}
	if q.Results[0].Content != "a red bicycle" || q.Metrics.BLEUScore != 0 {
		t.Errorf("unexpected answer %+v", q)
	}
	if q.Results[0].OriginalName == nil || *q.Results[0].OriginalName != "bike.png" {
		t.Errorf("unexpected original name %v", q.Results[0].OriginalName)
	}
}

func TestServer_GenerateStory(t *testing.T) {
	h := newTestHandler(t, 0)

	var st StoryResponse
	do(t, h, jsonRequest(t, http.MethodPost, "/generate-story", StoryRequest{Query: "the sea", UserID: "u1"}), http.StatusOK, &st)
	if st.Grounded || st.ContentID != "" || st.Lang != "en" {
		t.Errorf("expected ungrounded story, got %+v", st)
	}

	up := upload(t, h, map[string]string{"user_id": "u1", "text": "a quiet harbor at dawn"}, nil)
	do(t, h, jsonRequest(t, http.MethodPost, "/generate-story", StoryRequest{Query: "the sea", UserID: "u1", Lang: "fr"}), http.StatusOK, &st)
	if !st.Grounded || st.ContentID != up.ID || st.Lang != "fr" {
		t.Errorf("expected story grounded on %s, got %+v", up.ID, st)
	}
}

func TestServer_BadRequests(t *testing.T) {
	h := newTestHandler(t, 0)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"query bad json", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{"))
		}},
		{"query missing user", func() *http.Request {
			return jsonRequest(t, http.MethodPost, "/query", QueryRequest{Query: "x"})
		}},
		{"query bad mode", func() *http.Request {
			return jsonRequest(t, http.MethodPost, "/query", QueryRequest{Query: "x", UserID: "u1", Mode: "keyword"})
		}},
		{"story missing theme", func() *http.Request {
			return jsonRequest(t, http.MethodPost, "/generate-story", StoryRequest{UserID: "u1"})
		}},
		{"history bad limit", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/history/u1?limit=abc", http.NoBody)
		}},
		{"history zero limit", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/history/u1?limit=0", http.NoBody)
		}},
		{"upload nothing", func() *http.Request {
			body, ct := multipartBody(t, map[string]string{"user_id": "u1"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			return req
		}},
		{"query image without file", func() *http.Request {
			body, ct := multipartBody(t, map[string]string{"user_id": "u1"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/query-image", body)
			req.Header.Set("Content-Type", ct)
			return req
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var errResp ErrorResponse
			do(t, h, tc.req(), http.StatusBadRequest, &errResp)
			if errResp.Code == "" || errResp.Message == "" {
				t.Errorf("incomplete error body %+v", errResp)
			}
		})
	}
}

func TestServer_UploadTooLarge(t *testing.T) {
	h := newTestHandler(t, 1024)

	body, ct := multipartBody(t, map[string]string{"user_id": "u1"}, bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	var errResp ErrorResponse
	do(t, h, req, http.StatusRequestEntityTooLarge, &errResp)
	if errResp.Code != ErrorCodePayloadTooLarge {
		t.Errorf("code = %s", errResp.Code)
	}
}

func TestServer_Health(t *testing.T) {
	h := newTestHandler(t, 0)

	var resp HealthResponse
	do(t, h, httptest.NewRequest(http.MethodGet, "/health", http.NoBody), http.StatusOK, &resp)
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected health %+v", resp)
	}
}

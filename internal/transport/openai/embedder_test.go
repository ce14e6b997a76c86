package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// embeddingServer answers /embeddings with vec and tokens, calling inspect on each request first.
func embeddingServer(t *testing.T, vec []float32, tokens int, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		data := []embeddingDatum{}
		if vec != nil {
			data = append(data, embeddingDatum{Object: "embedding", Embedding: vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data":   data,
			"usage":  embeddingUsage{PromptTokens: tokens, TotalTokens: tokens},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func errorServer(t *testing.T, status int, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": message, "type": "server_error"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(url string, dims int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		Dimensions: dims,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbed_SendsQueryAndReturnsVector(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3, 0.4}
	srv := embeddingServer(t, want, 10, func(r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var body struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Input) != 1 || body.Input[0] != "rainy market street" || body.Dimensions != 4 {
			t.Errorf("unexpected request body: %+v", body)
		}
	})

	res, err := newTestEmbedder(srv.URL, 4).Embed(context.Background(), "rainy market street")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != len(want) {
		t.Fatalf("got %d dims, want %d", len(res.Embedding), len(want))
	}
	for i := range want {
		if res.Embedding[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, res.Embedding[i], want[i])
		}
	}
	if res.PromptTokens != 10 || res.TotalTokens != 10 {
		t.Errorf("usage = %d/%d, want 10/10", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, []float32{0.1, 0.2}, 3, nil)

	_, err := newTestEmbedder(srv.URL, 384).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error for wrong dimensions, got %v", err)
	}
}

func TestEmbed_EmptyResponse(t *testing.T) {
	srv := embeddingServer(t, nil, 0, nil)

	_, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error for empty data, got %v", err)
	}
}

func TestEmbedImage(t *testing.T) {
	srv := embeddingServer(t, []float32{0.6, 0.8}, 0, func(r *http.Request) {
		var body struct {
			Input []map[string]string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Input) != 1 || body.Input[0]["image"] != "AQID" {
			t.Errorf("unexpected image input: %+v", body.Input)
		}
	})
	emb := newTestEmbedder(srv.URL, 0)

	res, err := emb.EmbedImage(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EmbedImage: %v", err)
	}
	if len(res.Embedding) != 2 || res.Embedding[1] != 0.8 {
		t.Fatalf("unexpected embedding: %v", res.Embedding)
	}

	if _, err := emb.EmbedImage(context.Background(), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty image, got %v", err)
	}
}

func TestEmbed_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		message     string
		rateLimited bool
	}{
		{"server error", http.StatusInternalServerError, "boom", false},
		{"throttled", http.StatusTooManyRequests, "rate limit exceeded", true},
		{"quota in body", http.StatusForbidden, "Quota exceeded for model", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := errorServer(t, tc.status, tc.message)

			_, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "hello")
			if got := errors.Is(err, domain.ErrRateLimited); got != tc.rateLimited {
				t.Fatalf("rate limited = %v, want %v (err %v)", got, tc.rateLimited, err)
			}
			if !tc.rateLimited && !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected provider error, got %v", err)
			}
		})
	}
}

func TestRateLimitOr(t *testing.T) {
	fallback := domain.ErrGenerationProviderError
	tests := []struct {
		status int
		msg    string
		want   error
	}{
		{http.StatusTooManyRequests, "", domain.ErrRateLimited},
		{http.StatusBadRequest, "RESOURCE_EXHAUSTED: try later", domain.ErrRateLimited},
		{http.StatusForbidden, "Quota exceeded for model", domain.ErrRateLimited},
		{http.StatusInternalServerError, "internal", fallback},
	}
	for _, tc := range tests {
		if got := rateLimitOr(tc.status, tc.msg, fallback); got != tc.want {
			t.Errorf("rateLimitOr(%d, %q) = %v, want %v", tc.status, tc.msg, got, tc.want)
		}
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not loaded"}`)); got != "model not loaded" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail on garbage = %q", got)
	}
}

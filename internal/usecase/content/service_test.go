package content

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// --- Mocks ---

type mockRepo struct {
	stored []domcontent.Record
	err    error
}

func (m *mockRepo) Upsert(_ context.Context, rec domcontent.Record) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, rec)
	return nil
}

type mockCandidates struct {
	listLimit int
	records   []domcontent.Record
	deleted   int
	deleteErr error
}

func (m *mockCandidates) ListUserItems(_ context.Context, _ string, _ domcontent.Kind, limit int) []domcontent.Record {
	m.listLimit = limit
	return m.records
}

func (m *mockCandidates) DeleteUserItems(context.Context, string) (int, error) {
	return m.deleted, m.deleteErr
}

type mockVectorizer struct {
	err        error
	gotText    string
	gotCaption string
	gotImage   []byte
}

func vecs() map[space.Space][]float32 {
	return map[space.Space][]float32{space.Text: {0.1, 0.2}, space.Clip: {0.3, 0.4}}
}

func (m *mockVectorizer) Text(_ context.Context, text string) (map[space.Space][]float32, error) {
	m.gotText = text
	return vecs(), m.err
}

func (m *mockVectorizer) Image(_ context.Context, image []byte, caption string) (map[space.Space][]float32, error) {
	m.gotImage = image
	m.gotCaption = caption
	return vecs(), m.err
}

type mockGenerator struct {
	out   string
	ok    bool
	calls int
}

func (m *mockGenerator) GenerateOr(_ context.Context, _ string, _ prompt.Prompt, fallback string) (string, bool) {
	m.calls++
	if !m.ok {
		return fallback, false
	}
	return m.out, true
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(4, 4, color.White), imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(repo *mockRepo, cands *mockCandidates, vec *mockVectorizer, gen *mockGenerator) *Service {
	s := New(repo, cands, vec, gen, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "fixed-id" }
	return s
}

// --- Tests ---

func TestUpload_Text(t *testing.T) {
	repo := &mockRepo{}
	vec := &mockVectorizer{}
	svc := newTestService(repo, &mockCandidates{}, vec, &mockGenerator{})

	id, err := svc.Upload(context.Background(), Upload{UserID: "u1", Lang: "fr", Text: "  bonjour\r\n le   monde "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "fixed-id" || len(repo.stored) != 1 {
		t.Fatalf("unexpected id %q, stored %d", id, len(repo.stored))
	}
	rec := repo.stored[0]
	if rec.Kind() != domcontent.KindText || rec.Content() != "bonjour le monde" || rec.Lang() != "fr" {
		t.Errorf("unexpected record %q %q %q", rec.Kind(), rec.Content(), rec.Lang())
	}
	if vec.gotText != "bonjour le monde" {
		t.Errorf("embedded text %q", vec.gotText)
	}
	if !rec.HasTimestamp() {
		t.Error("record must carry a timestamp")
	}
}

func TestUpload_Image(t *testing.T) {
	repo := &mockRepo{}
	vec := &mockVectorizer{}
	gen := &mockGenerator{out: "A red\nbicycle", ok: true}
	svc := newTestService(repo, &mockCandidates{}, vec, gen)
	img := pngBytes(t)

	if _, err := svc.Upload(context.Background(), Upload{UserID: "u1", File: img}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := repo.stored[0]
	if rec.Kind() != domcontent.KindImage || !rec.HasImage() {
		t.Fatalf("expected image record with bytes, got %q", rec.Kind())
	}
	if rec.Content() != "A red\nbicycle" || vec.gotCaption != "A red bicycle" {
		t.Errorf("caption stored %q, embedded %q", rec.Content(), vec.gotCaption)
	}
	if rec.OriginalName() != DefaultUploadName {
		t.Errorf("original name %q", rec.OriginalName())
	}
	if !bytes.Equal(vec.gotImage, img) {
		t.Error("pixels not passed to the image embedder")
	}
}

func TestUpload_CaptionFailure(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockCandidates{}, &mockVectorizer{}, &mockGenerator{ok: false})

	if _, err := svc.Upload(context.Background(), Upload{UserID: "u1", File: pngBytes(t), FileName: "cat.png"}); err != nil {
		t.Fatalf("caption failure must not fail the upload: %v", err)
	}
	if got := repo.stored[0].Content(); got != CaptionFailed {
		t.Errorf("caption = %q", got)
	}
	if repo.stored[0].OriginalName() != "cat.png" {
		t.Errorf("original name %q", repo.stored[0].OriginalName())
	}
}

func TestUpload_NonImageFileIsText(t *testing.T) {
	repo := &mockRepo{}
	gen := &mockGenerator{ok: true}
	svc := newTestService(repo, &mockCandidates{}, &mockVectorizer{}, gen)

	file := []byte("meeting notes\nabout the harbor \xff")
	if _, err := svc.Upload(context.Background(), Upload{UserID: "u1", File: file, FileName: "notes.txt"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := repo.stored[0]
	if rec.Kind() != domcontent.KindText || rec.Content() != "meeting notes about the harbor" {
		t.Errorf("unexpected record %q %q", rec.Kind(), rec.Content())
	}
	if rec.OriginalName() != "notes.txt" {
		t.Errorf("original name %q", rec.OriginalName())
	}
	if gen.calls != 0 {
		t.Error("text files must not be captioned")
	}
}

func TestUpload_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		u    Upload
	}{
		{"nothing", Upload{UserID: "u1"}},
		{"blank text", Upload{UserID: "u1", Text: " \n "}},
		{"missing user", Upload{Text: "hello"}},
		{"whitespace file", Upload{UserID: "u1", File: []byte("   ")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{}
			svc := newTestService(repo, &mockCandidates{}, &mockVectorizer{}, &mockGenerator{})
			if _, err := svc.Upload(context.Background(), tc.u); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if len(repo.stored) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestUpload_Failures(t *testing.T) {
	storeErr := errors.New("store down")

	svc := newTestService(&mockRepo{err: storeErr}, &mockCandidates{}, &mockVectorizer{}, &mockGenerator{})
	if _, err := svc.Upload(context.Background(), Upload{UserID: "u1", Text: "x"}); !errors.Is(err, storeErr) {
		t.Errorf("expected store error, got %v", err)
	}

	svc = newTestService(&mockRepo{}, &mockCandidates{}, &mockVectorizer{err: domain.ErrEmbeddingProviderError}, &mockGenerator{})
	if _, err := svc.Upload(context.Background(), Upload{UserID: "u1", Text: "x"}); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected embedding error, got %v", err)
	}
}

func TestHistory_Limits(t *testing.T) {
	cands := &mockCandidates{}
	svc := newTestService(&mockRepo{}, cands, &mockVectorizer{}, &mockGenerator{})

	svc.History(context.Background(), "u1", 0)
	if cands.listLimit != DefaultHistoryLimit {
		t.Errorf("default limit = %d", cands.listLimit)
	}
	svc.History(context.Background(), "u1", 10_000)
	if cands.listLimit != MaxHistoryLimit {
		t.Errorf("capped limit = %d", cands.listLimit)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockCandidates{deleted: 4}, &mockVectorizer{}, &mockGenerator{})
	n, err := svc.Delete(context.Background(), "u1")
	if err != nil || n != 4 {
		t.Fatalf("got (%d, %v)", n, err)
	}

	failing := newTestService(&mockRepo{}, &mockCandidates{deleteErr: domain.ErrStoreUnavailable}, &mockVectorizer{}, &mockGenerator{})
	if _, err := failing.Delete(context.Background(), "u1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected store error, got %v", err)
	}
	if _, err := failing.Delete(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

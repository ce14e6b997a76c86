package request

import (
	"strings"
	"testing"

	"github.com/blinderchief/visiolingua/internal/domain/search/mode"
)

func TestNewText_Defaults(t *testing.T) {
	q, err := NewText("  red bicycle ", "u1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "red bicycle" {
		t.Errorf("Text() = %q", q.Text())
	}
	if q.Mode() != mode.Dense {
		t.Errorf("Mode() = %q, want dense (default)", q.Mode())
	}
	if q.Lang() != DefaultLang {
		t.Errorf("Lang() = %q, want %q", q.Lang(), DefaultLang)
	}
	if q.IsImage() {
		t.Error("text query reported as image")
	}
}

func TestNewText_Validation(t *testing.T) {
	tests := []struct {
		name string
		text string
		user string
		m    mode.Mode
	}{
		{"empty text", "   ", "u1", ""},
		{"too long", strings.Repeat("a", MaxQueryLength+1), "u1", ""},
		{"missing user", "cats", "", ""},
		{"bad mode", "cats", "u1", "keyword"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewText(tc.text, tc.user, "en", tc.m); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewText_Hybrid(t *testing.T) {
	q, err := NewText("cats", "u1", "fr", mode.Hybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Mode() != mode.Hybrid || q.Lang() != "fr" {
		t.Errorf("unexpected query: mode=%q lang=%q", q.Mode(), q.Lang())
	}
}

func TestNewImage(t *testing.T) {
	q, err := NewImage([]byte{1, 2, 3}, "u1", "de", " what is this? ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.IsImage() || q.Question() != "what is this?" || q.Lang() != "de" {
		t.Errorf("unexpected query: image=%v question=%q lang=%q", q.IsImage(), q.Question(), q.Lang())
	}

	if _, err := NewImage(nil, "u1", "en", ""); err == nil {
		t.Error("expected error for missing image")
	}
	if _, err := NewImage([]byte{1}, "", "en", ""); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestNewStory(t *testing.T) {
	s, err := NewStory("a rainy day", "u1", "", "c9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Theme() != "a rainy day" || s.UserID() != "u1" || s.Lang() != "en" || s.ContentID() != "c9" {
		t.Errorf("unexpected story: %+v", s)
	}

	if _, err := NewStory("", "u1", "en", ""); err == nil {
		t.Error("expected error for missing theme")
	}
	if _, err := NewStory("theme", "", "en", ""); err == nil {
		t.Error("expected error for missing user")
	}
}

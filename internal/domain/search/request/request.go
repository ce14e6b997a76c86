package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinderchief/visiolingua/internal/domain/search/mode"
)

// Request limits.
const (
	// MaxQueryLength is the maximum allowed query or theme length.
	MaxQueryLength = 4096
	// DefaultLang is used when the client sends no language.
	DefaultLang = "en"
)

// Query is a validated retrieval request: either text or an image, always scoped to one user.
type Query struct {
	text      string
	image     []byte
	question  string
	userID    string
	lang      string
	queryMode mode.Mode
}

// NewText validates a text query. Empty mode means dense.
func NewText(text, userID, lang string, m mode.Mode) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, errors.New("query is required")
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if userID == "" {
		return Query{}, errors.New("user_id is required")
	}
	m = m.OrDefault()
	if !m.IsValid() {
		return Query{}, fmt.Errorf("invalid query mode: %q", m)
	}
	return Query{text: text, userID: userID, lang: langOrDefault(lang), queryMode: m}, nil
}

// NewImage validates an image query with an optional question about the image.
func NewImage(image []byte, userID, lang, question string) (Query, error) {
	if len(image) == 0 {
		return Query{}, errors.New("image is required")
	}
	if userID == "" {
		return Query{}, errors.New("user_id is required")
	}
	question = strings.TrimSpace(question)
	if len(question) > MaxQueryLength {
		return Query{}, fmt.Errorf("question too long (max %d chars)", MaxQueryLength)
	}
	return Query{
		image:     image,
		question:  question,
		userID:    userID,
		lang:      langOrDefault(lang),
		queryMode: mode.Dense,
	}, nil
}

// Text returns the query text, empty for image queries.
func (q Query) Text() string { return q.text }

// Image returns the query image bytes, nil for text queries.
func (q Query) Image() []byte { return q.image }

// IsImage reports whether this is an image query.
func (q Query) IsImage() bool { return len(q.image) > 0 }

// Question returns the optional question asked about a query image.
func (q Query) Question() string { return q.question }

// UserID returns the requesting user.
func (q Query) UserID() string { return q.userID }

// Lang returns the requested response language.
func (q Query) Lang() string { return q.lang }

// Mode returns the ranking strategy.
func (q Query) Mode() mode.Mode { return q.queryMode }

// Story is a validated grounded-generation request.
type Story struct {
	theme     string
	userID    string
	lang      string
	contentID string
}

// NewStory validates a story request. contentID is optional.
func NewStory(theme, userID, lang, contentID string) (Story, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return Story{}, errors.New("query is required")
	}
	if len(theme) > MaxQueryLength {
		return Story{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if userID == "" {
		return Story{}, errors.New("user_id is required")
	}
	return Story{theme: theme, userID: userID, lang: langOrDefault(lang), contentID: contentID}, nil
}

// Theme returns the story theme.
func (s Story) Theme() string { return s.theme }

// UserID returns the requesting user.
func (s Story) UserID() string { return s.userID }

// Lang returns the story language.
func (s Story) Lang() string { return s.lang }

// ContentID returns the explicitly referenced record, empty when none.
func (s Story) ContentID() string { return s.contentID }

func langOrDefault(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLang
	}
	return lang
}

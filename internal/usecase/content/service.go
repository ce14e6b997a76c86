package content

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/prompt"
)

// CaptionFailed is stored as the caption when the model could not describe an image.
const CaptionFailed = "Image uploaded (caption generation failed)"

// DefaultUploadName names files uploaded without a filename.
const DefaultUploadName = "uploaded"

// History listing bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Upload is one ingestion request: a file, plain text, or both (the file wins).
type Upload struct {
	UserID   string
	Lang     string
	Text     string
	File     []byte
	FileName string
}

// Service ingests, lists and deletes a user's content.
type Service struct {
	repo   Repository
	cands  Candidates
	vec    Vectorizer
	gen    Generator
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a content service.
func New(repo Repository, cands Candidates, vec Vectorizer, gen Generator, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cands:  cands,
		vec:    vec,
		gen:    gen,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Upload stores an image or a text document and returns its new id.
// Files that decode as images are captioned by the model; any other file is read as UTF-8 text.
func (s *Service) Upload(ctx context.Context, u Upload) (string, error) {
	if u.UserID == "" {
		return "", fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	if len(u.File) == 0 && strings.TrimSpace(u.Text) == "" {
		return "", fmt.Errorf("%w: either file or text must be provided", domain.ErrInvalidInput)
	}

	var (
		rec domcontent.Record
		err error
	)
	switch {
	case len(u.File) > 0 && isImage(u.File):
		rec, err = s.image(ctx, u)
	case len(u.File) > 0:
		rec, err = s.text(ctx, u, strings.ToValidUTF8(string(u.File), ""))
		if err == nil {
			rec = rec.WithOriginalName(orDefault(u.FileName))
		}
	default:
		rec, err = s.text(ctx, u, u.Text)
	}
	if err != nil {
		return "", err
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return "", fmt.Errorf("store record: %w", err)
	}

	s.logger.Info("Content uploaded",
		zap.String("content_id", rec.ID()),
		zap.String("user_id", rec.UserID()),
		zap.String("kind", string(rec.Kind())),
	)
	return rec.ID(), nil
}

// History lists a user's records, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) []domcontent.Record {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.cands.ListUserItems(ctx, userID, "", min(limit, MaxHistoryLimit))
}

// Delete removes every record of a user and returns how many were removed.
func (s *Service) Delete(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	n, err := s.cands.DeleteUserItems(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("delete history: %w", err)
	}
	s.logger.Info("History deleted", zap.String("user_id", userID), zap.Int("deleted", n))
	return n, nil
}

func (s *Service) image(ctx context.Context, u Upload) (domcontent.Record, error) {
	caption, _ := s.gen.GenerateOr(ctx, "caption", prompt.DescribeImage(langOrDefault(u.Lang), u.File), CaptionFailed)
	if caption == prompt.TryAgainLater {
		caption = CaptionFailed
	}

	vecs, err := s.vec.Image(ctx, u.File, clean(caption))
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("vectorize image: %w", err)
	}

	rec, err := domcontent.New(s.newID(), u.UserID, u.Lang, s.now(),
		domcontent.Image{Caption: caption, Bytes: u.File}, vecs)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return rec.WithOriginalName(orDefault(u.FileName)), nil
}

func (s *Service) text(ctx context.Context, u Upload, raw string) (domcontent.Record, error) {
	body := clean(raw)
	if body == "" {
		return domcontent.Record{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}

	vecs, err := s.vec.Text(ctx, body)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("vectorize text: %w", err)
	}

	rec, err := domcontent.New(s.newID(), u.UserID, u.Lang, s.now(), domcontent.Text{Body: body}, vecs)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return rec, nil
}

func isImage(raw []byte) bool {
	_, err := imaging.Decode(bytes.NewReader(raw))
	return err == nil
}

// clean collapses whitespace runs, line breaks included, into single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(name string) string {
	if name == "" {
		return DefaultUploadName
	}
	return name
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}

package content

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// Kind is the type of stored content.
type Kind string

// Content kinds.
const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == KindImage || k == KindText
}

// Body is the kind-specific part of a record: Image or Text.
type Body interface {
	kind() Kind
	text() string
}

// Image is an uploaded picture with its generated caption.
type Image struct {
	Caption string
	Bytes   []byte
}

func (Image) kind() Kind     { return KindImage }
func (i Image) text() string { return i.Caption }

// Text is an uploaded text snippet or text file.
type Text struct {
	Body string
}

func (Text) kind() Kind     { return KindText }
func (t Text) text() string { return t.Body }

// Record is a stored content item (immutable value object).
// A zero timestamp means the timestamp is missing.
type Record struct {
	id           string
	userID       string
	lang         string
	originalName string
	timestamp    time.Time
	body         Body
	vectors      map[space.Space][]float32
}

// New validates and creates a Record. The text space vector is mandatory.
func New(
	id, userID, lang string, timestamp time.Time, body Body, vectors map[space.Space][]float32,
) (Record, error) {
	if id == "" {
		return Record{}, errors.New("record ID is required")
	}
	if userID == "" {
		return Record{}, errors.New("user ID is required")
	}
	if body == nil {
		return Record{}, errors.New("record body is required")
	}
	if len(vectors[space.Text]) == 0 {
		return Record{}, fmt.Errorf("%s vector is required", space.Text)
	}
	for sp := range vectors {
		if !sp.IsValid() {
			return Record{}, fmt.Errorf("unknown vector space %q", sp)
		}
	}
	if lang == "" {
		lang = "en"
	}

	return Record{
		id:        id,
		userID:    userID,
		lang:      lang,
		timestamp: timestamp,
		body:      body,
		vectors:   cloneVectors(vectors),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, userID, lang, originalName string, timestamp time.Time, body Body, vectors map[space.Space][]float32,
) Record {
	return Record{
		id:           id,
		userID:       userID,
		lang:         lang,
		originalName: originalName,
		timestamp:    timestamp,
		body:         body,
		vectors:      vectors,
	}
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// UserID returns the owning user.
func (r Record) UserID() string { return r.userID }

// Lang returns the ISO language code of the content.
func (r Record) Lang() string { return r.lang }

// OriginalName returns the uploaded file name, empty for plain text.
func (r Record) OriginalName() string { return r.originalName }

// Timestamp returns the creation instant.
func (r Record) Timestamp() time.Time { return r.timestamp }

// HasTimestamp reports whether the creation instant is known.
func (r Record) HasTimestamp() bool { return !r.timestamp.IsZero() }

// Body returns the kind-specific payload.
func (r Record) Body() Body { return r.body }

// Kind returns the content kind.
func (r Record) Kind() Kind {
	if r.body == nil {
		return KindText
	}
	return r.body.kind()
}

// Content returns the caption for images and the raw text otherwise.
func (r Record) Content() string {
	if r.body == nil {
		return ""
	}
	return r.body.text()
}

// ImageBytes returns the image payload, nil for text records.
func (r Record) ImageBytes() []byte {
	if img, ok := r.body.(Image); ok {
		return img.Bytes
	}
	return nil
}

// HasImage reports whether the record is an image with bytes present.
func (r Record) HasImage() bool {
	return len(r.ImageBytes()) > 0
}

// Vector returns the vector for the given space, nil when absent.
func (r Record) Vector(sp space.Space) []float32 { return r.vectors[sp] }

// Vectors returns all vectors keyed by space.
func (r Record) Vectors() map[space.Space][]float32 { return r.vectors }

// WithOriginalName returns a copy with the uploaded file name set.
func (r Record) WithOriginalName(name string) Record {
	c := r
	c.originalName = name
	return c
}

// WithContent returns a copy whose text (caption for images) is replaced, e.g. by a translation.
func (r Record) WithContent(text, lang string) Record {
	c := r
	switch b := r.body.(type) {
	case Image:
		b.Caption = text
		c.body = b
	default:
		c.body = Text{Body: text}
	}
	c.lang = lang
	return c
}

// SortByRecency orders records newest first. Records without a timestamp go last,
// ties keep their input order.
func SortByRecency(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.HasTimestamp() && !b.HasTimestamp():
			return -1
		case !a.HasTimestamp() && b.HasTimestamp():
			return 1
		}
		return b.timestamp.Compare(a.timestamp)
	})
}

func cloneVectors(m map[space.Space][]float32) map[space.Space][]float32 {
	c := make(map[space.Space][]float32, len(m))
	for k, v := range m {
		c[k] = append([]float32(nil), v...)
	}
	return c
}

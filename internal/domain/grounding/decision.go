// Package grounding describes which stored item, if any, grounds a generative request.
package grounding

import "github.com/blinderchief/visiolingua/internal/domain/content"

// Kind is the branch a grounded generation takes.
type Kind int

const (
	// Ungrounded generates from the theme alone.
	Ungrounded Kind = iota
	// OnImage conditions generation on the item's image bytes.
	OnImage
	// OnText conditions generation on the item's textual content.
	OnText
)

func (k Kind) String() string {
	switch k {
	case OnImage:
		return "image"
	case OnText:
		return "text"
	default:
		return "ungrounded"
	}
}

// Source names the selection step that produced a decision.
type Source string

const (
	SourceExplicit    Source = "explicit"
	SourceLatestImage Source = "latest_image"
	SourceLatestAny   Source = "latest_any"
	SourceNone        Source = "none"
)

// Decision is the outcome of grounding selection.
type Decision struct {
	kind      Kind
	theme     string
	image     []byte
	text      string
	contentID string
	lang      string
	source    Source
}

// FromRecord grounds on rec. Images with bytes ground on pixels,
// everything else on the record's content.
func FromRecord(rec content.Record, theme string, src Source) Decision {
	d := Decision{
		theme:     theme,
		contentID: rec.ID(),
		lang:      rec.Lang(),
		source:    src,
	}
	if rec.Kind() == content.KindImage && rec.HasImage() {
		d.kind = OnImage
		d.image = rec.ImageBytes()
		d.text = rec.Content()
		return d
	}
	d.kind = OnText
	d.text = rec.Content()
	return d
}

// None returns an ungrounded decision for theme.
func None(theme string) Decision {
	return Decision{kind: Ungrounded, theme: theme, source: SourceNone}
}

// Kind returns the generation branch.
func (d Decision) Kind() Kind { return d.kind }

// Theme returns the request theme.
func (d Decision) Theme() string { return d.theme }

// Image returns the grounding image bytes (OnImage only).
func (d Decision) Image() []byte { return d.image }

// Text returns the grounding text. For images it is the caption.
func (d Decision) Text() string { return d.text }

// ContentID returns the grounding record id, empty when ungrounded.
func (d Decision) ContentID() string { return d.contentID }

// Lang returns the grounding record language, empty when ungrounded.
func (d Decision) Lang() string { return d.lang }

// Source returns the selection step that produced the decision.
func (d Decision) Source() Source { return d.source }

// Grounded reports whether a stored item was selected.
func (d Decision) Grounded() bool { return d.kind != Ungrounded }

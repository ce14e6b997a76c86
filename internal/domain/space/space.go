package space

// Space names a dense vector space a record is embedded in.
type Space string

// Known vector spaces.
const (
	// Clip is the cross-modal image/text space.
	Clip Space = "clip"
	// Text is the same-modality multilingual text space.
	Text Space = "text"
)

// All lists every known space in index order.
var All = []Space{Clip, Text}

// IsValid checks if the space is one of the supported values.
func (s Space) IsValid() bool {
	return s == Clip || s == Text
}

// Field returns the storage field holding vectors of this space.
func (s Space) Field() string {
	return "vec_" + string(s)
}

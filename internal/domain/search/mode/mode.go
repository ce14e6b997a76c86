package mode

// Mode is the ranking strategy of a text query.
type Mode string

// Query mode constants.
const (
	// Dense searches both vector spaces and merges the hits.
	Dense Mode = "dense"
	// Hybrid ranks the user's whole corpus by BM25 and cosine fused together.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Dense || m == Hybrid
}

// OrDefault returns Dense for an empty mode.
func (m Mode) OrDefault() Mode {
	if m == "" {
		return Dense
	}
	return m
}

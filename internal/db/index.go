package db

import (
	"errors"
	"fmt"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceCosine is cosine distance, 1 - cosine similarity.
	DistanceCosine DistanceMetric = "COSINE"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
)

// FieldType enumerates the schema field types the content index uses.
type FieldType int

const (
	// FieldNumeric is a numeric field.
	FieldNumeric FieldType = iota
	// FieldTag is an exact-match tag field.
	FieldTag
	// FieldText is a full-text field.
	FieldText
	// FieldVector is an HNSW vector field.
	FieldVector
)

// String returns the FT.CREATE keyword of the type.
func (t FieldType) String() string {
	switch t {
	case FieldNumeric:
		return "NUMERIC"
	case FieldTag:
		return "TAG"
	case FieldText:
		return "TEXT"
	case FieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// HNSW holds the parameters of a FLOAT32 vector field.
// Zero M or EFConstruct leaves the server default.
type HNSW struct {
	Dim         int
	Distance    DistanceMetric // default COSINE
	M           int
	EFConstruct int
}

// IndexField is one schema field.
type IndexField struct {
	Name     string
	Type     FieldType
	Sortable bool // NUMERIC and TEXT only
	Vector   HNSW // VECTOR only
}

// IndexDefinition is an FT index over the hashes under one key prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("field name is required at position %d", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == FieldVector && f.Vector.Dim <= 0 {
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		}
		if f.Sortable && f.Type != FieldNumeric && f.Type != FieldText {
			return fmt.Errorf("only NUMERIC and TEXT fields can be sortable: %s", f.Name)
		}
	}
	return nil
}

// String renders the definition in FT.CREATE shape for logs and tests.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE " + idx.Name + " ON HASH")
	if idx.Prefix != "" {
		sb.WriteString(" PREFIX " + idx.Prefix)
	}
	sb.WriteString(" SCHEMA")
	for _, f := range idx.Fields {
		sb.WriteString(" " + f.Name + " " + f.Type.String())
		if f.Type == FieldVector {
			sb.WriteString(" HNSW")
		}
		if f.Sortable {
			sb.WriteString(" SORTABLE")
		}
	}
	return sb.String()
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_' || r == ':' || r == '-':
			return false
		}
		return true
	}) < 0
}

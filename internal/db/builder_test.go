package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_ContentSchema(t *testing.T) {
	idx, err := NewIndex("visiolingua:content:idx", "visiolingua:content:").
		Tag("user_id", "kind").
		SortableNumeric("timestamp").
		Text("content").
		Vector("vec_clip", HNSW{Dim: 512, M: 16, EFConstruct: 200}).
		Vector("vec_text", HNSW{Dim: 384}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 6 {
		t.Fatalf("fields count = %d, want 6", len(idx.Fields))
	}
	if ts := idx.Fields[2]; ts.Type != FieldNumeric || !ts.Sortable {
		t.Errorf("timestamp field = %+v, want sortable NUMERIC", ts)
	}
	clip := idx.Fields[4].Vector
	if clip.Dim != 512 || clip.Distance != DistanceCosine || clip.M != 16 || clip.EFConstruct != 200 {
		t.Errorf("clip params = %+v", clip)
	}
	if idx.Fields[5].Vector.Distance != DistanceCosine {
		t.Errorf("distance should default to COSINE")
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("", "p:").Tag("x"), "index name is required"},
		{"no fields", NewIndex("idx", "p:"), "at least one field"},
		{"vector without dim", NewIndex("idx", "p:").Vector("v", HNSW{}), "positive DIM"},
		{"invalid characters", NewIndex("idx with spaces", "p:").Tag("x"), "invalid characters"},
		{"duplicate field", NewIndex("idx", "p:").Tag("kind").SortableNumeric("kind"), "duplicate field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_SortableTagRejected(t *testing.T) {
	idx := &IndexDefinition{
		Name:   "idx",
		Fields: []IndexField{{Name: "user_id", Type: FieldTag, Sortable: true}},
	}
	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for sortable TAG")
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("my-idx", "doc:").
		Tag("kind").
		SortableNumeric("timestamp").
		Vector("vec", HNSW{Dim: 2}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "FT.CREATE my-idx ON HASH PREFIX doc: SCHEMA kind TAG timestamp NUMERIC SORTABLE vec VECTOR HNSW"
	if got := idx.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFieldType_String(t *testing.T) {
	if FieldTag.String() != "TAG" || FieldVector.String() != "VECTOR" {
		t.Error("unexpected keyword")
	}
	if got := FieldType(42).String(); got != "FieldType(42)" {
		t.Errorf("unknown type = %q", got)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, ok := range []string{"visiolingua:content:idx", "a_b-c"} {
		if !IsValidIdentifier(ok) {
			t.Errorf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "has space", "star*"} {
		if IsValidIdentifier(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

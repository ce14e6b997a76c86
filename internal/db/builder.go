package db

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index over the hashes under prefix.
func NewIndex(name, prefix string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Tag adds exact-match TAG fields.
func (b *IndexBuilder) Tag(names ...string) *IndexBuilder {
	for _, name := range names {
		b.add(IndexField{Name: name, Type: FieldTag})
	}
	return b
}

// SortableNumeric adds a NUMERIC SORTABLE field, usable with SORTBY.
func (b *IndexBuilder) SortableNumeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: FieldNumeric, Sortable: true})
}

// Text adds a full-text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: FieldText})
}

// Vector adds an HNSW vector field.
func (b *IndexBuilder) Vector(name string, params HNSW) *IndexBuilder {
	if params.Distance == "" {
		params.Distance = DistanceCosine
	}
	return b.add(IndexField{Name: name, Type: FieldVector, Vector: params})
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}

package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/blinderchief/visiolingua/internal/db"
)

// CreateIndex issues FT.CREATE for the definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO. Redis answers "unknown index name"
// and Valkey "not found" for an absent index.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "not found") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// createArgs renders FT.CREATE arguments: name ON HASH [PREFIX 1 p] SCHEMA fields...
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	args := []string{def.Name, "ON", "HASH"}
	if def.Prefix != "" {
		args = append(args, "PREFIX", "1", def.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, f := range def.Fields {
		fa, err := fieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}

func fieldArgs(f db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	switch f.Type {
	case db.FieldTag:
		return []string{f.Name, "TAG"}, nil
	case db.FieldNumeric, db.FieldText:
		args := []string{f.Name, f.Type.String()}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
		return args, nil
	case db.FieldVector:
		return vectorArgs(f.Name, f.Vector)
	default:
		return nil, errors.New("unknown field type " + f.Type.String())
	}
}

func vectorArgs(name string, p db.HNSW) ([]string, error) {
	if p.Dim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}
	distance := p.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(p.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if p.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(p.M))
	}
	if p.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(p.EFConstruct))
	}

	return append([]string{name, "VECTOR", "HNSW", strconv.Itoa(len(attrs))}, attrs...), nil
}

package content

import (
	"github.com/blinderchief/visiolingua/internal/db"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// buildIndex creates the FT index definition over content hashes.
func (r *Repo) buildIndex() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName(), r.keyPrefix()).
		Tag(fieldUserID, fieldKind, fieldLang).
		SortableNumeric(fieldTimestamp).
		Text(fieldContent)

	for _, sp := range space.All {
		b.Vector(sp.Field(), db.HNSW{
			Dim:         r.opts.dim(sp),
			Distance:    db.DistanceCosine,
			M:           r.opts.M,
			EFConstruct: r.opts.EFConstruct,
		})
	}
	return b.Build()
}

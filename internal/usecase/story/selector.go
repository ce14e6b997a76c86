package story

import (
	"context"

	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/grounding"
	"github.com/blinderchief/visiolingua/internal/domain/search/request"
	"github.com/blinderchief/visiolingua/internal/metrics"
)

// DefaultScanLimit bounds the listing used to find the latest record.
const DefaultScanLimit = 10

// Selector picks the record a story is grounded in.
type Selector struct {
	cands     Candidates
	scanLimit int
	logger    *zap.Logger
}

// NewSelector creates a grounding selector.
func NewSelector(cands Candidates, scanLimit int, logger *zap.Logger) *Selector {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Selector{cands: cands, scanLimit: scanLimit, logger: logger}
}

// Select walks the cascade: the explicit content id, then the user's latest
// image, then the user's latest record of any kind, then nothing.
// An explicit id owned by another user is ignored.
func (s *Selector) Select(ctx context.Context, st request.Story) grounding.Decision {
	d := s.choose(ctx, st)
	metrics.GroundingDecisionsTotal.WithLabelValues(string(d.Source())).Inc()
	return d
}

func (s *Selector) choose(ctx context.Context, st request.Story) grounding.Decision {
	if id := st.ContentID(); id != "" {
		rec, ok := s.cands.Retrieve(ctx, id)
		switch {
		case ok && rec.UserID() == st.UserID():
			return grounding.FromRecord(rec, st.Theme(), grounding.SourceExplicit)
		case ok:
			s.logger.Warn("Ignoring content id owned by another user",
				zap.String("content_id", id),
				zap.String("user_id", st.UserID()),
			)
		}
	}

	if recs := s.cands.ListUserItems(ctx, st.UserID(), content.KindImage, s.scanLimit); len(recs) > 0 {
		return grounding.FromRecord(recs[0], st.Theme(), grounding.SourceLatestImage)
	}
	if recs := s.cands.ListUserItems(ctx, st.UserID(), "", s.scanLimit); len(recs) > 0 {
		return grounding.FromRecord(recs[0], st.Theme(), grounding.SourceLatestAny)
	}
	return grounding.None(st.Theme())
}

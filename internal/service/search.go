package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/model"
)

const (
	searchPerType  = 10
	searchTotal    = 20
	searchMaxQuery = 64
)

// Searcher runs the cross-entity search: one substring lookup per requested
// family, run concurrently, concatenated in model.SearchTypes order and
// capped.  There is no ranking beyond each family's own order.
type Searcher struct {
	store Store
}

// NewSearcher returns a searcher backed by store.
func NewSearcher(store Store) *Searcher {
	return &Searcher{store: store}
}

// Search looks text up across clients, tables, tabs and cards of eventID, or
// only within typ when it is non-nil.
func (s *Searcher) Search(ctx context.Context, eventID uint64, text string, typ *model.SearchType) ([]model.SearchHit, error) {
	if eventID == 0 {
		return nil, apperr.Validation("invalid_event", "event id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("invalid_query", "search text is required")
	}
	if utf8.RuneCountInString(text) > searchMaxQuery {
		return nil, apperr.Validation("invalid_query", "search text is too long")
	}
	types := model.SearchTypes
	if typ != nil {
		if !typ.Valid() {
			return nil, apperr.Validation("invalid_type", "unknown search type: "+string(*typ))
		}
		types = []model.SearchType{*typ}
	}

	results := make([][]model.SearchHit, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			hits, err := s.lookup(gctx, eventID, t, text)
			if err != nil {
				return err
			}
			if len(hits) > searchPerType {
				hits = hits[:searchPerType]
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.SearchHit, 0, searchTotal)
	for _, hits := range results {
		for _, h := range hits {
			if len(out) == searchTotal {
				return out, nil
			}
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Searcher) lookup(ctx context.Context, eventID uint64, t model.SearchType, text string) ([]model.SearchHit, error) {
	switch t {
	case model.SearchClient:
		return s.store.SearchClients(ctx, text, searchPerType)
	case model.SearchTable:
		return s.store.SearchTables(ctx, eventID, text, searchPerType)
	case model.SearchTab:
		return s.store.SearchTabs(ctx, eventID, text, searchPerType)
	case model.SearchCard:
		return s.store.SearchCards(ctx, eventID, text, searchPerType)
	}
	return nil, nil
}

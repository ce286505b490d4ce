package model

// SearchType is the entity family a search hit belongs to.
type SearchType string

const (
	SearchClient SearchType = "client"
	SearchTable  SearchType = "table"
	SearchTab    SearchType = "tab"
	SearchCard   SearchType = "card"
)

// SearchTypes lists every searchable family in the order results are merged.
var SearchTypes = []SearchType{SearchClient, SearchTable, SearchTab, SearchCard}

// Valid reports whether t is a searchable family.
func (t SearchType) Valid() bool {
	switch t {
	case SearchClient, SearchTable, SearchTab, SearchCard:
		return true
	}
	return false
}

// SearchHit is one tagged result of a cross-entity search.
type SearchHit struct {
	Type     SearchType     `json:"type"`
	ID       uint64         `json:"id"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Status   string         `json:"status,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

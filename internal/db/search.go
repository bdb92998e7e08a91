package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Filter is a pre-filter query string ("*" or tag/numeric conditions);
	// empty means unfiltered.
	Filter string
	Vector []float32
	K      int
	// MaxDistance, when > 0, switches to a VECTOR_RANGE query so the store
	// itself excludes candidates beyond this distance.
	MaxDistance  float64
	ReturnFields []string
}

// ListQuery is the input for sorted, paginated FT.SEARCH listing.
type ListQuery struct {
	IndexName    string
	Query        string
	SortBy       string // empty means natural order
	Desc         bool
	Offset       int
	Limit        int
	ReturnFields []string
	// NoContent returns keys only (RETURN 0), used for cursor resolution.
	NoContent bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64 // cosine distance for KNN hits
	Fields map[string]string
}

// Package pagination resolves opaque last-document-ID cursors against sorted
// FT.SEARCH listings. A cursor is the key of the last document of the
// previous page; resolving it costs a round trip that scans the sorted key
// stream up to and including the cursor. Scanning by key keeps ties on equal
// sort values stable: no document is skipped or repeated across pages.
package pagination

import (
	"context"
	"fmt"

	"github.com/studydeck/studydeck/internal/db"
)

// window is the NOCONTENT scan page size used during cursor resolution.
const window = 100

// ErrCursorNotFound signals a cursor that no longer matches any document in
// the listing (deleted, or fabricated by the caller).
var ErrCursorNotFound = fmt.Errorf("pagination: cursor not found")

type searcher interface {
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// FindOffset returns the offset of the first document after cursorKey in the
// sorted listing described by index/query/sortBy/desc.
func FindOffset(
	ctx context.Context, s searcher,
	index, query, sortBy string, desc bool, cursorKey string,
) (int, error) {
	offset := 0
	for {
		res, err := s.SearchList(ctx, &db.ListQuery{
			IndexName: index,
			Query:     query,
			SortBy:    sortBy,
			Desc:      desc,
			Offset:    offset,
			Limit:     window,
			NoContent: true,
		})
		if err != nil {
			return 0, fmt.Errorf("scan for cursor: %w", err)
		}
		if len(res.Entries) == 0 {
			return 0, ErrCursorNotFound
		}

		for i, e := range res.Entries {
			if e.Key == cursorKey {
				return offset + i + 1, nil
			}
		}

		offset += len(res.Entries)
		if offset >= res.Total {
			return 0, ErrCursorNotFound
		}
	}
}

package subgraph

import (
	"context"
)

// ZeroAddress is the first cursor for collections keyed by account address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Cursor is the id of the last entity seen. Pages are requested with id_gt: cursor.
type Cursor struct {
	last string
}

// NewCursor starts before every string id.
func NewCursor() *Cursor {
	return &Cursor{}
}

// NewAddressCursor starts before every address id.
func NewAddressCursor() *Cursor {
	return &Cursor{last: ZeroAddress}
}

func (c *Cursor) Last() string {
	return c.last
}

func (c *Cursor) Advance(id string) {
	c.last = id
}

// PageFunc fetches up to first entities with an id greater than after.
type PageFunc[T any] func(ctx context.Context, after string, first int) ([]T, error)

// FetchAll requests pages until one comes back empty, advancing the cursor to the last
// id of every page. Errors are returned as is.
func FetchAll[T any](ctx context.Context, cursor *Cursor, pageSize int, fetch PageFunc[T], id func(T) string) ([]T, error) {
	var all []T
	for {
		page, err := fetch(ctx, cursor.Last(), pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		cursor.Advance(id(page[len(page)-1]))
	}
}

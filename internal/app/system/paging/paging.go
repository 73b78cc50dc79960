// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the number of groups shown per page of the browse lists.
const PageSize = 25

// Keyset describes one request for a page of a name-ordered list. Lists
// are paged by (sort key, _id) cursors rather than offsets so concurrent
// inserts never shift rows between pages.
type Keyset struct {
	Before string // cursor of the first row on the page we came from
	After  string // cursor of the last row on the page we came from
	Start  int    // 1-based position of the first row, for display only
	Size   int

	cursor *wafflemongo.Cursor
}

// FromRequest reads the before, after and start query parameters.
func FromRequest(r *http.Request, size int) Keyset {
	return New(query.Get(r, "before"), query.Get(r, "after"), parseStart(query.Get(r, "start")), size)
}

// New builds a Keyset. An undecodable cursor is treated as absent, which
// lands the reader on the first page.
func New(before, after string, start, size int) Keyset {
	if size <= 0 {
		size = PageSize
	}
	if start < 1 {
		start = 1
	}
	k := Keyset{Before: before, After: after, Start: start, Size: size}
	raw := after
	if before != "" {
		raw = before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			k.cursor = &c
		}
	}
	return k
}

// First is the first page of a list.
func First(size int) Keyset { return New("", "", 1, size) }

func parseStart(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Backward reports whether the reader is paging towards the start.
func (k Keyset) Backward() bool { return k.Before != "" }

// Order is the Mongo sort direction for the query: descending when paging
// backward, so the page nearest the cursor comes first.
func (k Keyset) Order() int {
	if k.Backward() {
		return -1
	}
	return 1
}

// Limit fetches one row beyond the page to learn whether another exists.
func (k Keyset) Limit() int64 { return int64(k.Size + 1) }

// Sort orders by field then _id in the query direction.
func (k Keyset) Sort(field string) bson.D {
	return bson.D{{Key: field, Value: k.Order()}, {Key: "_id", Value: k.Order()}}
}

// Window is the $match clause restricting rows to one side of the cursor,
// or nil on the first page.
func (k Keyset) Window(field string) bson.M {
	if k.cursor == nil {
		return nil
	}
	dir := "gt"
	if k.Backward() {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(field, dir, k.cursor.CI, k.cursor.ID)
}

// Page is what a list template needs to draw its pager.
type Page struct {
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string

	Start     int // 0 when the page is empty
	End       int
	PrevStart int
	NextStart int
}

// Finish trims the look-ahead row fetched by Limit, restores display order
// for backward pages and computes cursors and the display range.
func Finish[T any](k Keyset, rows []T, key func(T) string, id func(T) primitive.ObjectID) ([]T, Page) {
	var pg Page
	if k.Backward() {
		if len(rows) > k.Size {
			rows = rows[:k.Size]
			pg.HasPrev = true
		}
		pg.HasNext = true
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	} else {
		if len(rows) > k.Size {
			rows = rows[:k.Size]
			pg.HasNext = true
		}
		pg.HasPrev = k.After != ""
	}

	pg.PrevStart = max(k.Start-k.Size, 1)
	pg.NextStart = 1
	if len(rows) == 0 {
		return rows, pg
	}
	pg.Start = k.Start
	pg.End = k.Start + len(rows) - 1
	pg.NextStart = pg.End + 1

	first, last := rows[0], rows[len(rows)-1]
	pg.PrevCursor = wafflemongo.EncodeCursor(key(first), id(first))
	pg.NextCursor = wafflemongo.EncodeCursor(key(last), id(last))
	return rows, pg
}

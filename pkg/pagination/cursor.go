package pagination

import "fmt"

// DefaultPageSize is the number of summaries requested per listing call.
const DefaultPageSize = 20

// Cursor tracks how many records have been loaded.
// Cursor is a value type; every transition returns a new Cursor.
type Cursor struct {
	Offset   int `json:"offset"`
	PageSize int `json:"page_size"`
}

// NewCursor returns a cursor at offset 0. Non-positive sizes fall back to
// DefaultPageSize.
func NewCursor(pageSize int) Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Cursor{PageSize: pageSize}
}

// Next returns the offset the next listing call should use. An initial fetch
// always starts at 0.
func (c Cursor) Next(initial bool) int {
	if initial {
		return 0
	}
	return c.Offset
}

// Advance moves the cursor past one page.
func (c Cursor) Advance() Cursor {
	c.Offset += c.PageSize
	return c
}

// Reset moves the cursor back to offset 0.
func (c Cursor) Reset() Cursor {
	c.Offset = 0
	return c
}

// Exhausted reports whether the cursor has reached total. A non-positive
// total means the size of the collection is unknown.
func (c Cursor) Exhausted(total int) bool {
	return total > 0 && c.Offset >= total
}

func (c Cursor) String() string {
	return fmt.Sprintf("offset=%d limit=%d", c.Offset, c.PageSize)
}

package progress

import (
	"sync"

	"poi-harvest/internal/poi_harvest/model"
)

// Cursor tracks completion of an ordered item list and reports the key of the
// last item of the contiguous completed prefix. Items finishing out of order
// inside a batch never move the cursor past an unfinished item.
type Cursor struct {
	mu      sync.Mutex
	items   []model.WorkItem
	done    []bool
	next    int
	current string
}

// NewCursor starts from the cursor of a previous session, if any.
func NewCursor(items []model.WorkItem, resumed string) *Cursor {
	return &Cursor{
		items:   items,
		done:    make([]bool, len(items)),
		current: resumed,
	}
}

// Complete marks items[i] finished and returns the resulting cursor.
func (c *Cursor) Complete(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i >= 0 && i < len(c.done) {
		c.done[i] = true
	}
	for c.next < len(c.done) && c.done[c.next] {
		c.current = c.items[c.next].Key()
		c.next++
	}
	return c.current
}

func (c *Cursor) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Completed is the length of the finished prefix.
func (c *Cursor) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

package practice

import (
	"errors"
	"fmt"
)

var ErrNoGroups = errors.New("no question groups to present")

// Cursor is a bounded position in [0, n-1]. Out-of-range moves are refused
// and leave the position unchanged.
type Cursor struct {
	pos int
	n   int
}

func NewCursor(n int) (*Cursor, error) {
	if n <= 0 {
		return nil, ErrNoGroups
	}
	return &Cursor{n: n}, nil
}

// restoreCursor rebuilds a cursor from a snapshot, clamping a stale position.
func restoreCursor(pos, n int) (*Cursor, error) {
	c, err := NewCursor(n)
	if err != nil {
		return nil, err
	}
	switch {
	case pos < 0:
		c.pos = 0
	case pos >= n:
		c.pos = n - 1
	default:
		c.pos = pos
	}
	return c, nil
}

func (c *Cursor) Position() int { return c.pos }

func (c *Cursor) Len() int { return c.n }

func (c *Cursor) HasNext() bool { return c.pos < c.n-1 }

func (c *Cursor) HasPrevious() bool { return c.pos > 0 }

// Next advances by one and reports whether it moved.
func (c *Cursor) Next() bool {
	if !c.HasNext() {
		return false
	}
	c.pos++
	return true
}

// Previous steps back by one and reports whether it moved.
func (c *Cursor) Previous() bool {
	if !c.HasPrevious() {
		return false
	}
	c.pos--
	return true
}

// Progress renders the "3 / 10" indicator shown next to the controls.
func (c *Cursor) Progress() string {
	return fmt.Sprintf("%d / %d", c.pos+1, c.n)
}

// Package navigation moves a selection through an accumulated list.
//
// The cursor holds the selected item, not its index, so it stays valid when
// the list grows or is replaced underneath it. Every move re-locates the
// selection by identity.
package navigation

import "sync"

// Identified is anything with a stable identity.
type Identified interface {
	Identity() string
}

// Source provides the current list to navigate.
type Source[T Identified] interface {
	Items() []T
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T Identified] func() []T

// Items calls f.
func (f SourceFunc[T]) Items() []T {
	return f()
}

// Cursor tracks the selected item of a Source. It never triggers loading.
type Cursor[T Identified] struct {
	source Source[T]

	mu       sync.Mutex
	selected T
	open     bool
}

// NewCursor creates a cursor with nothing selected.
func NewCursor[T Identified](source Source[T]) *Cursor[T] {
	return &Cursor[T]{source: source}
}

// Select opens the detail view on item.
func (c *Cursor[T]) Select(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = item
	c.open = true
}

// Close clears the selection.
func (c *Cursor[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.selected = zero
	c.open = false
}

// Selected returns the current selection.
func (c *Cursor[T]) Selected() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.open
}

// Previous moves to the item before the selection. It returns false and
// leaves the selection alone when nothing is selected, the selection is no
// longer in the list, or it is already first.
func (c *Cursor[T]) Previous() (T, bool) {
	return c.step(-1)
}

// Next moves to the item after the selection, with the same no-op rules as
// Previous at the end of the list.
func (c *Cursor[T]) Next() (T, bool) {
	return c.step(1)
}

func (c *Cursor[T]) step(delta int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if !c.open {
		return zero, false
	}

	items := c.source.Items()
	i := indexOf(items, c.selected.Identity())
	if i < 0 {
		return zero, false
	}

	j := i + delta
	if j < 0 || j >= len(items) {
		return zero, false
	}

	c.selected = items[j]
	return c.selected, true
}

func indexOf[T Identified](items []T, id string) int {
	for i, item := range items {
		if item.Identity() == id {
			return i
		}
	}
	return -1
}

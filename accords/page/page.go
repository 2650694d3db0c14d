// Package page windows a result set into fixed-size, 1-based pages.
package page

import (
	"errors"
	"fmt"
)

// DefaultSize is the number of rows per page.
const DefaultSize = 20

// ErrPageOutOfRange is returned for a page outside [1, Count].
var ErrPageOutOfRange = errors.New("page out of range")

// Count returns the number of pages for total rows. An empty set still has
// one (empty) page.
func Count(total, size int) int {
	if size <= 0 {
		size = DefaultSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Clamp brings n into [1, Count(total, size)].
func Clamp(n, total, size int) int {
	if n < 1 {
		return 1
	}
	if max := Count(total, size); n > max {
		return max
	}
	return n
}

// Slice returns rows[(n-1)*size : min(n*size, len(rows))].
func Slice[T any](rows []T, n, size int) ([]T, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if n < 1 || n > Count(len(rows), size) {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, Count(len(rows), size))
	}
	start := (n - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

// Info describes one page for display: rows First to Last of Total.
// First and Last are 1-based and both zero when there are no rows.
type Info struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Size  int `json:"size"`
	Total int `json:"total"`
	First int `json:"first"`
	Last  int `json:"last"`
}

// Describe builds the Info for page n, clamping n first.
func Describe(n, total, size int) Info {
	if size <= 0 {
		size = DefaultSize
	}
	n = Clamp(n, total, size)
	info := Info{Page: n, Pages: Count(total, size), Size: size, Total: total}
	if total > 0 {
		info.First = (n-1)*size + 1
		info.Last = n * size
		if info.Last > total {
			info.Last = total
		}
	}
	return info
}

// HasPrev and HasNext report whether navigation is possible.
func (i Info) HasPrev() bool { return i.Page > 1 }

func (i Info) HasNext() bool { return i.Page < i.Pages }

// String renders the counter shown below the table.
func (i Info) String() string {
	return fmt.Sprintf("%d–%d of %d", i.First, i.Last, i.Total)
}

package listview

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/simp-lee/pagination"
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// PageState tracks the page window of a list screen. Offset is the zero
// based page index, so the first record shown is Limit*Offset+1.
type PageState struct {
	Limit           int
	Offset          int
	CurrentPage     int
	TotalCount      int
	PaginationStart int
	PaginationEnd   int
}

// NewPageState returns the first page with the given page size.
func NewPageState(limit int) PageState {
	return PageState{Limit: ClampLimit(limit, MaxLimit), CurrentPage: 1}
}

// ClampLimit bounds limit to [1, upper]. Zero or negative limits fall back
// to DefaultLimit.
func ClampLimit(limit, upper int) int {
	if upper <= 0 {
		upper = MaxLimit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(limit, upper)
}

// ChangePage moves to page n (1-based). n below 1 selects the first page.
func (p *PageState) ChangePage(n int) {
	if n < 1 {
		n = 1
	}
	p.CurrentPage = n
	p.Offset = n - 1
}

// SetLimit changes the page size and returns to the first page.
func (p *PageState) SetLimit(limit, upper int) {
	p.Limit = ClampLimit(limit, upper)
	p.ChangePage(1)
}

// SetPaginationString recomputes the displayed range from Limit, Offset and
// TotalCount. Both bounds are zero when TotalCount is zero.
func (p *PageState) SetPaginationString() {
	if p.TotalCount <= 0 {
		p.TotalCount = 0
		p.PaginationStart = 0
		p.PaginationEnd = 0
		return
	}
	p.PaginationStart = p.Limit*p.Offset + 1
	p.PaginationEnd = min(p.Limit*(p.Offset+1), p.TotalCount)
}

// String renders the range as "1 - 5 of 23", or "" for an empty list.
func (p PageState) String() string {
	if p.TotalCount <= 0 {
		return ""
	}
	return fmt.Sprintf("%d - %d of %d", p.PaginationStart, p.PaginationEnd, p.TotalCount)
}

// DefaultPageWindow is the number of page links shown around the current page.
const DefaultPageWindow = 5

// Nav is the page navigation shown under a list. Prev and Next are zero
// when there is no such page.
type Nav struct {
	Pages      []int
	Current    int
	TotalPages int
	Prev       int
	Next       int
}

func (n Nav) HasPrev() bool { return n.Prev > 0 }

func (n Nav) HasNext() bool { return n.Next > 0 }

// Nav returns the page links for TotalCount records, at most window of them
// around the current page. An empty list has no navigation.
func (p PageState) Nav(window int) Nav {
	if p.TotalCount <= 0 {
		return Nav{}
	}
	if window <= 0 {
		window = DefaultPageWindow
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	// The records are already loaded; the paginator only does the page math.
	pg, err := pagination.NewPaginator(
		pagination.WithItemsPerPage[struct{}](limit),
		pagination.WithPagesInRange[struct{}](window),
		pagination.WithKnownTotal[struct{}](int64(p.TotalCount)),
		pagination.WithSliceCallback(func(context.Context, int, int) ([]struct{}, error) { return nil, nil }),
	).Paginate(context.Background(), max(p.CurrentPage, 1))
	if err != nil {
		return Nav{Pages: []int{p.CurrentPage}, Current: p.CurrentPage, TotalPages: p.CurrentPage}
	}

	nav := Nav{Pages: pg.Pages, Current: pg.CurrentPage, TotalPages: pg.TotalPages}
	if pg.HasPreviousPage() {
		nav.Prev = *pg.PreviousPage
	}
	if pg.HasNextPage() {
		nav.Next = *pg.NextPage
	}
	return nav
}

// LastPage is the highest page holding records, at least 1.
func (p PageState) LastPage() int {
	return max(p.Nav(1).TotalPages, 1)
}

// Apply sets limit and offset on q.
func (p PageState) Apply(q url.Values) {
	q.Set(FieldLimit, strconv.Itoa(p.Limit))
	q.Set(FieldOffset, strconv.Itoa(p.Offset))
}

package tracker

import (
	"net/url"
	"strconv"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// PageRequest selects a 1 based page of a listing.
type PageRequest struct {
	Page   int
	Size   int
	Search string
}

func (r PageRequest) normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = DefaultPageSize
	}
	return r
}

func (r PageRequest) Offset() int {
	r = r.normalize()
	return (r.Page - 1) * r.Size
}

func (r PageRequest) Limit() int {
	return r.normalize().Size
}

// Page is the listing envelope returned by collection endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope for items fetched with req out of count. A
// page past the end of a non empty listing is a NotFoundError.
func NewPage[T any](req PageRequest, count int, items []T) (Page[T], error) {
	req = req.normalize()
	if items == nil {
		items = []T{}
	}
	page := Page[T]{Count: count, Results: items}
	if req.Page > 1 && req.Offset() >= count {
		return page, NewNotFoundError("page", map[string]any{"page": req.Page})
	}
	return page, nil
}

// WithLinks fills next and previous relative to path, keeping the search
// filter.
func (p Page[T]) WithLinks(path string, req PageRequest) Page[T] {
	req = req.normalize()
	link := func(n int) *string {
		q := url.Values{}
		q.Set("page", strconv.Itoa(n))
		if req.Search != "" {
			q.Set("search", req.Search)
		}
		s := path + "?" + q.Encode()
		return &s
	}
	if req.Page*req.Size < p.Count {
		p.Next = link(req.Page + 1)
	}
	if req.Page > 1 {
		p.Previous = link(req.Page - 1)
	}
	return p
}

// MapPage converts the results of a page.
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := Page[R]{Count: p.Count, Next: p.Next, Previous: p.Previous, Results: make([]R, 0, len(p.Results))}
	for _, item := range p.Results {
		out.Results = append(out.Results, fn(item))
	}
	return out
}

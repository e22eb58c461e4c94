package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func TestPageRequestDefaults(t *testing.T) {
	req := tracker.PageRequest{}
	assert.Equal(t, 0, req.Offset())
	assert.Equal(t, tracker.DefaultPageSize, req.Limit())

	req = tracker.PageRequest{Page: 3, Size: 5}
	assert.Equal(t, 10, req.Offset())
	assert.Equal(t, 5, req.Limit())
}

func TestNewPage(t *testing.T) {
	page, err := tracker.NewPage[string](tracker.PageRequest{Page: 1, Size: 2}, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)

	_, err = tracker.NewPage[string](tracker.PageRequest{Page: 3, Size: 2}, 4, nil)
	assert.True(t, tracker.IsError(err, tracker.ErrNotFound))

	_, err = tracker.NewPage(tracker.PageRequest{Page: 2, Size: 2}, 3, []string{"c"})
	assert.NoError(t, err)
}

func TestPageWithLinks(t *testing.T) {
	req := tracker.PageRequest{Page: 2, Size: 2, Search: "al"}
	page, err := tracker.NewPage(req, 5, []string{"c", "d"})
	require.NoError(t, err)

	page = page.WithLinks("/api/v1/users", req)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "/api/v1/users?page=3&search=al", *page.Next)
	assert.Equal(t, "/api/v1/users?page=1&search=al", *page.Previous)

	last := tracker.PageRequest{Page: 3, Size: 2}
	page, err = tracker.NewPage(last, 5, []string{"e"})
	require.NoError(t, err)
	page = page.WithLinks("/p", last)
	assert.Nil(t, page.Next)
	assert.Equal(t, "/p?page=2", *page.Previous)
}

func TestMapPage(t *testing.T) {
	next := "/n"
	page := tracker.Page[int]{Count: 3, Next: &next, Results: []int{1, 2}}

	out := tracker.MapPage(page, func(n int) string { return string(rune('a' + n)) })
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, &next, out.Next)
	assert.Equal(t, []string{"b", "c"}, out.Results)
}

package params

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"limit=10&page=3", Pagination{Limit: 10, Page: 3, Offset: 20}},
		{"limit=500", Pagination{Limit: 30, Page: 1, Offset: 0}},
		{"limit=-4&page=0", Pagination{Limit: 15, Page: 1, Offset: 0}},
		{"limit=abc&page=xyz", Pagination{Limit: 15, Page: 1, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParsePagination(q))
		})
	}
}

func TestComputeMetaAndWindow(t *testing.T) {
	p := Pagination{Limit: 2, Page: 2, Offset: 2}
	p.ComputeMeta(5)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	items := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, []string{"c", "d"}, Window(items, p))

	p = Pagination{Limit: 2, Page: 3, Offset: 4}
	assert.Equal(t, []string{"e"}, Window(items, p))

	p = Pagination{Limit: 2, Page: 9, Offset: 16}
	assert.Empty(t, Window(items, p))
}

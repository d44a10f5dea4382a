package shared

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTruncatesTimestamps(t *testing.T) {
	got, err := ParseDate("2026-03-04T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate(" 2026-03-04 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("04/03/2026")
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	cases := map[string]Pagination{
		"/x":                      {Limit: 100, Offset: 0},
		"/x?limit=10&offset=20":   {Limit: 10, Offset: 20},
		"/x?limit=9000":           {Limit: 500, Offset: 0},
		"/x?limit=0&offset=-3":    {Limit: 100, Offset: 0},
		"/x?limit=abc&offset=two": {Limit: 100, Offset: 0},
	}
	for target, want := range cases {
		r := httptest.NewRequest("GET", target, nil)
		assert.Equal(t, want, ParsePagination(r, 100, 500), target)
	}
}

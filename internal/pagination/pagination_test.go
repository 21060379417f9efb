package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/societyhub/internal/pagination"
)

func TestNormalizeAppliesDefaultsAndCap(t *testing.T) {
	require.Equal(t, pagination.Request{Page: 1, Limit: 20}, pagination.Normalize(0, 0))
	require.Equal(t, pagination.Request{Page: 3, Limit: 100}, pagination.Normalize(3, 500))
	require.Equal(t, pagination.Request{Page: 1, Limit: 5}, pagination.Normalize(-2, 5))
}

func TestParseFallsBackOnGarbage(t *testing.T) {
	require.Equal(t, pagination.Request{Page: 1, Limit: 20}, pagination.Parse("abc", ""))
	require.Equal(t, pagination.Request{Page: 2, Limit: 10}, pagination.Parse(" 2 ", "10"))
}

func TestOffsetAndSummary(t *testing.T) {
	request := pagination.Normalize(3, 10)
	require.Equal(t, 20, request.Offset())

	require.Equal(t, pagination.Summary{Page: 3, Limit: 10, Total: 21, Pages: 3}, request.Summarize(21))
	require.Equal(t, 0, request.Summarize(0).Pages)
	require.Equal(t, 2, request.Summarize(20).Pages)
}

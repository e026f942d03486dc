package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamOrdersMatchesSearchOrders(t *testing.T) {
	body := func(query string) string {
		_, rest, _ := strings.Cut(query, "\n")
		return rest
	}

	stream := body(streamOrders)
	assert.NotContains(t, stream, "LIMIT")
	assert.NotContains(t, stream, "$6")

	// same columns and filters, so rows scan into SearchOrdersRow
	assert.Equal(t, strings.TrimSuffix(body(searchOrders), "LIMIT $6 OFFSET $7\n"), stream)
}

package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RestoresEquivalentCart(t *testing.T) {
	c := NewCart()
	c.Add(Item{ID: 1, Name: "A", Price: priced(1000), Slug: "a"})
	c.Add(Item{ID: 1, Name: "A", Price: priced(1000), Slug: "a"})
	c.Add(Item{ID: 2, Name: "B"})

	raw, err := EncodeSnapshot(c)
	require.NoError(t, err)

	restored, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, c.Count(), restored.Count())
	assert.True(t, c.Total().Equal(restored.Total()))

	lines := restored.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].Slug)
	assert.False(t, lines[1].Price.Valid)
}

func TestDecodeSnapshot_MissingIsEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("  "), []byte("null")} {
		c, err := DecodeSnapshot(raw)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
	}
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	for _, raw := range []string{"{not json", `{"id":1}`, `[{"id":"x"}]`} {
		c, err := DecodeSnapshot([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedSnapshot, raw)
		require.NotNil(t, c)
		assert.Equal(t, 0, c.Len())
	}
}

func TestDecodeSnapshot_RepairsInvariants(t *testing.T) {
	raw := `[
		{"id":1,"name":"A","price":100,"quantity":2},
		{"id":0,"name":"ghost","price":5,"quantity":1},
		{"id":3,"name":"C","price":null,"quantity":0},
		{"id":1,"name":"A bis","price":999,"quantity":3}
	]`
	c, err := DecodeSnapshot([]byte(raw))
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "A", lines[0].Name)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(500)))
}

func TestDecodeSnapshot_AcceptsQuotedPrices(t *testing.T) {
	c, err := DecodeSnapshot([]byte(`[{"id":4,"name":"D","price":"12.50","quantity":2}]`))
	require.NoError(t, err)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("25")))
}

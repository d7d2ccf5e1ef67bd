package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 25)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.PageSize)
	assert.Equal(t, int64(3), p.Pages)

	p = NewPagination(2, 500, 25)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, int64(1), p.Pages)
}

func TestPagination_Bounds(t *testing.T) {
	start, end := NewPagination(3, 12, 25).Bounds(25)
	assert.Equal(t, 24, start)
	assert.Equal(t, 25, end)

	start, end = NewPagination(4, 12, 25).Bounds(25)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)
}

package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, Min(3, 5))
	assert.Equal(t, 3, Min(5, 3))
	assert.Equal(t, int64(-2), Min(int64(-2), int64(7)))
}

func TestMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, Max(3, 5))
	assert.Equal(t, 5, Max(5, 3))
	assert.Equal(t, int64(7), Max(int64(-2), int64(7)))
}

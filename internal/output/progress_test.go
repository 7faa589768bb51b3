package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderBar(t *testing.T) {
	assert.Contains(t, renderBar(0, 100, 10), "0.0%")
	assert.Contains(t, renderBar(50, 100, 10), "50.0%")
	assert.Contains(t, renderBar(100, 100, 10), "100.0%")
	// Out-of-range inputs clamp instead of panicking.
	assert.Contains(t, renderBar(200, 100, 10), "100.0%")
	assert.Contains(t, renderBar(-5, 100, 10), "0.0%")
	assert.Contains(t, renderBar(5, 0, 10), "100.0%")
}

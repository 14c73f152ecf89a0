package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinarySizeConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1024, KiB)
	assert.Equal(t, 1024*KiB, MiB)
	assert.Equal(t, 1024*MiB, GiB)
	assert.Equal(t, 4194304, 4*MiB)
}

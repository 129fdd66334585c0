package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	attr := Err(errors.New("authority unavailable"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "authority unavailable", attr.Value.String())
}

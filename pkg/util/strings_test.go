package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitCSV(" k1:9092, ,k2:9092 "))
	assert.Nil(t, SplitCSV(" , "))
}

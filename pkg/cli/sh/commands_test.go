package sh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robotalks/embd.go/pkg/l1"
)

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "", formatLabels(nil))
	assert.Equal(t, "rack=2,site=lab", formatLabels(map[string]string{"site": "lab", "rack": "2"}))
}

func TestFormatInfo(t *testing.T) {
	info := l1.BoardInfo{Ref: l1.BoardRef{Type: "sim", ID: "b7"}}
	assert.Equal(t, "sim/b7", FormatInfo(info))
	info.Meta.Description = "bench"
	assert.Equal(t, "sim/b7: bench", FormatInfo(info))
}

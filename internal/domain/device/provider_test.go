package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceInfoIsStable(t *testing.T) {
	provider := NewRuntimeProvider("1.0.0")

	first := provider.DeviceInfo()
	second := provider.DeviceInfo()

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "app/1.0.0")
}

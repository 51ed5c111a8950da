package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProviderEmpty(t *testing.T) {
	p := NewBindGroupProvider("splat_a")

	assert.Equal(t, "splat_a", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.InstanceBuffer())
	assert.Zero(t, p.InstanceCount())
}

func TestReleaseWithoutResources(t *testing.T) {
	p := NewBindGroupProvider("splat_b")
	p.SetInstanceBuffer(nil, 12)
	assert.Equal(t, 12, p.InstanceCount())

	assert.NotPanics(t, func() {
		p.Release()
		p.Release()
	})
	assert.Zero(t, p.InstanceCount())
}

package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
)

// cameraUniformSize is one mat4x4<f32>.
const cameraUniformSize = 64

// cameraBinding is the group 0 uniform shared by every renderer shader.
type cameraBinding struct {
	buf    *gfx.UniformBuffer
	layout *gfx.BindLayout
	group  *gfx.BindGroup
}

func newCameraBinding(ctx *gfx.Context, label string) (*cameraBinding, error) {
	buf, err := gfx.NewUniformBuffer(ctx, label+"_camera", cameraUniformSize)
	if err != nil {
		return nil, fmt.Errorf("create camera uniform: %w", err)
	}
	layout, err := gfx.NewBindLayout(ctx, label+"_camera_layout", gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	group, err := gfx.NewBindGroup(ctx, label+"_camera_group", layout, buf.Entry(0))
	if err != nil {
		layout.Destroy()
		buf.Destroy()
		return nil, err
	}
	return &cameraBinding{buf: buf, layout: layout, group: group}, nil
}

func (c *cameraBinding) set(viewProjection geom.Mat4) error {
	return c.buf.SetData(packMat4(viewProjection), 0)
}

func (c *cameraBinding) destroy() {
	if c == nil {
		return
	}
	c.group.Destroy()
	c.layout.Destroy()
	c.buf.Destroy()
}

func packMat4(m geom.Mat4) []byte {
	buf := make([]byte, cameraUniformSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/hearth-engine/hearth/internal/logging"
)

// BindLayout is a bind group layout.
type BindLayout struct {
	ctx    *Context
	id     ResourceID
	label  string
	layout hal.BindGroupLayout
}

// NewBindLayout creates a bind group layout from entries.
func NewBindLayout(ctx *Context, label string, entries ...gputypes.BindGroupLayoutEntry) (*BindLayout, error) {
	ctx.AssertRenderThread()
	layout, err := ctx.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind layout: %w", label, err)
	}
	return &BindLayout{ctx: ctx, id: nextResourceID(), label: label, layout: layout}, nil
}

// ID returns the layout's resource id.
func (l *BindLayout) ID() ResourceID { return l.id }

// Raw returns the HAL layout.
func (l *BindLayout) Raw() hal.BindGroupLayout { return l.layout }

// Destroy releases the layout.
func (l *BindLayout) Destroy() {
	if l == nil || l.layout == nil {
		return
	}
	layout := l.layout
	l.layout = nil
	l.ctx.deferDestroy(func(d hal.Device) { d.DestroyBindGroupLayout(layout) })
}

// BindGroup is a set of resources bound against a BindLayout.
type BindGroup struct {
	ctx   *Context
	id    ResourceID
	group hal.BindGroup
}

// NewBindGroup creates a bind group.
func NewBindGroup(ctx *Context, label string, layout *BindLayout, entries ...gputypes.BindGroupEntry) (*BindGroup, error) {
	ctx.AssertRenderThread()
	group, err := ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group: %w", label, err)
	}
	return &BindGroup{ctx: ctx, id: nextResourceID(), group: group}, nil
}

// ID returns the group's resource id.
func (g *BindGroup) ID() ResourceID { return g.id }

// Raw returns the HAL bind group.
func (g *BindGroup) Raw() hal.BindGroup { return g.group }

// Destroy releases the group once in-flight work no longer needs it.
func (g *BindGroup) Destroy() {
	if g == nil || g.group == nil {
		return
	}
	group := g.group
	g.group = nil
	g.ctx.deferDestroy(func(d hal.Device) { d.DestroyBindGroup(group) })
}

// DepthState enables depth testing for a pipeline.
type DepthState struct {
	Format  gputypes.TextureFormat
	Write   bool
	Compare gputypes.CompareFunction
}

// PipelineDesc describes a render pipeline.
type PipelineDesc struct {
	Label  string
	Shader *Shader
	// VertexEntry and FragmentEntry default to vs_main and fs_main.
	VertexEntry   string
	FragmentEntry string
	Vertex        []VertexLayout
	BindLayouts   []*BindLayout
	Targets       []gputypes.ColorTargetState
	Depth         *DepthState
	CullMode      gputypes.CullMode
}

type pipelineKey struct {
	label  string
	shader ResourceID
}

// Pipeline is a render pipeline and its layout. Pipelines are cached per
// context by label and shader: asking twice returns the same handle.
type Pipeline struct {
	ctx      *Context
	id       ResourceID
	key      pipelineKey
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// NewPipeline returns the pipeline for desc, creating it on first use.
func NewPipeline(ctx *Context, desc PipelineDesc) (*Pipeline, error) {
	ctx.AssertRenderThread()
	Assert(desc.Shader != nil, "pipeline %q has no shader", desc.Label)
	key := pipelineKey{label: desc.Label, shader: desc.Shader.id}
	if p, ok := ctx.pipelines[key]; ok {
		return p, nil
	}

	layouts := make([]hal.BindGroupLayout, len(desc.BindLayouts))
	for i, l := range desc.BindLayouts {
		layouts[i] = l.layout
	}
	pipeLayout, err := ctx.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline layout: %w", desc.Label, err)
	}

	buffers := make([]gputypes.VertexBufferLayout, len(desc.Vertex))
	for i, v := range desc.Vertex {
		buffers[i] = v.BufferLayout()
	}
	vsEntry, fsEntry := desc.VertexEntry, desc.FragmentEntry
	if vsEntry == "" {
		vsEntry = "vs_main"
	}
	if fsEntry == "" {
		fsEntry = "fs_main"
	}
	var depth *hal.DepthStencilState
	if desc.Depth != nil {
		depth = &hal.DepthStencilState{
			Format:            desc.Depth.Format,
			DepthWriteEnabled: desc.Depth.Write,
			DepthCompare:      desc.Depth.Compare,
			StencilFront:      hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
			StencilBack:       hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
		}
	}

	pipeline, err := ctx.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     desc.Shader.module,
			EntryPoint: vsEntry,
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     desc.Shader.module,
			EntryPoint: fsEntry,
			Targets:    desc.Targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  desc.CullMode,
		},
		DepthStencil: depth,
		Multisample:  gputypes.DefaultMultisampleState(),
	})
	if err != nil {
		ctx.device.DestroyPipelineLayout(pipeLayout)
		return nil, fmt.Errorf("create %s pipeline: %w", desc.Label, err)
	}

	p := &Pipeline{ctx: ctx, id: nextResourceID(), key: key, layout: pipeLayout, pipeline: pipeline}
	ctx.pipelines[key] = p
	logging.Logger().Debug("gfx: pipeline created", "label", desc.Label, "id", p.id)
	return p, nil
}

// ID returns the pipeline's resource id.
func (p *Pipeline) ID() ResourceID { return p.id }

// Raw returns the HAL render pipeline.
func (p *Pipeline) Raw() hal.RenderPipeline { return p.pipeline }

// Destroy removes the pipeline from the context cache and releases it.
func (p *Pipeline) Destroy() {
	if p == nil || p.pipeline == nil {
		return
	}
	if p.ctx.pipelines[p.key] == p {
		delete(p.ctx.pipelines, p.key)
	}
	p.release()
}

func (p *Pipeline) release() {
	if p.pipeline == nil {
		return
	}
	pipeline, layout := p.pipeline, p.layout
	p.pipeline, p.layout = nil, nil
	p.ctx.deferDestroy(func(d hal.Device) {
		d.DestroyRenderPipeline(pipeline)
		d.DestroyPipelineLayout(layout)
	})
}

package gfx

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PassDesc describes a render pass on a framebuffer.
type PassDesc struct {
	Label  string
	Target *Framebuffer
	// Clear clears the attachments at the start of the pass. Otherwise their
	// contents are loaded.
	Clear bool
	// ClearColors holds clear values per color attachment index. Missing
	// entries clear to transparent black.
	ClearColors []gputypes.Color
	// ClearDepth defaults to 1.
	ClearDepth float32
	// Only restricts the pass to these color attachments and drops the depth
	// attachment. Nil means every attachment.
	Only []int
}

// Pass records draw commands into one render pass and submits them on End.
type Pass struct {
	ctx     *Context
	label   string
	encoder hal.CommandEncoder
	rp      hal.RenderPassEncoder
	draws   int
	ended   bool
}

// BeginPass opens a command encoder and a render pass on desc.Target.
func BeginPass(ctx *Context, desc PassDesc) (*Pass, error) {
	ctx.AssertRenderThread()
	fb := desc.Target
	Assert(fb != nil, "pass %q has no target", desc.Label)

	encoder, err := ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: desc.Label})
	if err != nil {
		return nil, fmt.Errorf("create %s encoder: %w", desc.Label, err)
	}
	if err := encoder.BeginEncoding(desc.Label); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("begin %s encoding: %w", desc.Label, err)
	}

	load := gputypes.LoadOpLoad
	if desc.Clear {
		load = gputypes.LoadOpClear
	}
	rpDesc := &hal.RenderPassDescriptor{Label: desc.Label}
	for i := range fb.color {
		if desc.Only != nil && !slices.Contains(desc.Only, i) {
			continue
		}
		var clear gputypes.Color
		if i < len(desc.ClearColors) {
			clear = desc.ClearColors[i]
		}
		rpDesc.ColorAttachments = append(rpDesc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       fb.ColorAttachment(i).view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		})
	}
	if depth := fb.DepthAttachment(); depth != nil && desc.Only == nil {
		clearDepth := desc.ClearDepth
		if clearDepth == 0 {
			clearDepth = 1
		}
		rpDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     load,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: clearDepth,
		}
	}

	rp := encoder.BeginRenderPass(rpDesc)
	rp.SetViewport(0, 0, float32(fb.spec.Width), float32(fb.spec.Height), 0, 1)
	return &Pass{ctx: ctx, label: desc.Label, encoder: encoder, rp: rp}, nil
}

// Encoder returns the HAL render pass encoder for commands this type does
// not wrap.
func (p *Pass) Encoder() hal.RenderPassEncoder { return p.rp }

// SetPipeline binds a pipeline.
func (p *Pass) SetPipeline(pl *Pipeline) { p.rp.SetPipeline(pl.pipeline) }

// SetBindGroup binds g at group index.
func (p *Pass) SetBindGroup(index uint32, g *BindGroup) { p.rp.SetBindGroup(index, g.group, nil) }

// SetVertexArray binds the vertex and index buffers of va.
func (p *Pass) SetVertexArray(va *VertexArray) { va.Bind(p.rp) }

// DrawIndexed draws count indices starting at first.
func (p *Pass) DrawIndexed(count, first uint32, baseVertex int32) {
	if count == 0 {
		return
	}
	p.rp.DrawIndexed(count, 1, first, baseVertex, 0)
	p.draws++
}

// DrawIndexedIndirect issues the command stored at index in buf.
func (p *Pass) DrawIndexedIndirect(buf *IndirectBuffer, index int) {
	Assert(index >= 0 && index < buf.capacity, "indirect command %d of %d", index, buf.capacity)
	p.rp.DrawIndexedIndirect(buf.buf, uint64(index)*DrawIndexedIndirectSize) //nolint:gosec // checked above
	p.draws++
}

// DrawCalls returns the number of draws recorded so far.
func (p *Pass) DrawCalls() int { return p.draws }

// End closes the pass and submits it. The encoder is released once the GPU
// has finished with it.
func (p *Pass) End() error {
	Assert(!p.ended, "pass %q ended twice", p.label)
	p.ended = true
	p.rp.End()
	cmd, err := p.encoder.EndEncoding()
	if err != nil {
		p.encoder.Destroy()
		return fmt.Errorf("end %s encoding: %w", p.label, err)
	}
	_, err = p.ctx.Submit(cmd)
	encoder := p.encoder
	p.ctx.Defer(encoder.Destroy)
	return err
}

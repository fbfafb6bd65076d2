package gfx

import (
	"io/fs"
	"path"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/hearth-engine/hearth/internal/logging"
)

// Shader is a compiled WGSL module.
//
// Sources are validated with naga before the HAL sees them, so a broken
// shader fails with the compiler's diagnostic on every backend. A shader
// that does not compile, or a file that cannot be read, is fatal: the
// diagnostic is logged at error level and the constructor panics.
type Shader struct {
	ctx       *Context
	id        ResourceID
	name      string
	module    hal.ShaderModule
	spirvSize int
}

// NewShader compiles src under name.
func NewShader(ctx *Context, name, src string) *Shader {
	ctx.AssertRenderThread()
	spirv, err := naga.Compile(src)
	if err != nil {
		logging.Logger().Error("gfx: shader compilation failed", "shader", name, "err", err)
		panic("gfx: compile shader " + name + ": " + err.Error())
	}
	module, err := ctx.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		logging.Logger().Error("gfx: shader module creation failed", "shader", name, "err", err)
		panic("gfx: create shader module " + name + ": " + err.Error())
	}
	s := &Shader{ctx: ctx, id: nextResourceID(), name: name, module: module, spirvSize: len(spirv)}
	logging.Logger().Debug("gfx: shader compiled", "shader", name, "id", s.id, "spirv_bytes", len(spirv))
	return s
}

// LoadShader reads and compiles a WGSL file from fsys. The shader is named
// after the file without its extension.
func LoadShader(ctx *Context, fsys fs.FS, file string) *Shader {
	src, err := fs.ReadFile(fsys, file)
	if err != nil {
		logging.Logger().Error("gfx: shader file unreadable", "path", file, "err", err)
		panic("gfx: read shader " + file + ": " + err.Error())
	}
	name := strings.TrimSuffix(path.Base(file), path.Ext(file))
	return NewShader(ctx, name, string(src))
}

// ID returns the shader's resource id.
func (s *Shader) ID() ResourceID { return s.id }

// Name returns the shader name.
func (s *Shader) Name() string { return s.name }

// SPIRVSize returns the size of the validated SPIR-V in bytes.
func (s *Shader) SPIRVSize() int { return s.spirvSize }

// Module returns the HAL shader module.
func (s *Shader) Module() hal.ShaderModule { return s.module }

// Destroy releases the shader module.
func (s *Shader) Destroy() {
	if s == nil || s.module == nil {
		return
	}
	module := s.module
	s.module = nil
	s.ctx.deferDestroy(func(d hal.Device) { d.DestroyShaderModule(module) })
}

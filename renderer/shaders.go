package renderer

import (
	_ "embed"
)

//go:embed shaders/quad.wgsl
var quadShaderSource string

//go:embed shaders/circle.wgsl
var circleShaderSource string

//go:embed shaders/cube.wgsl
var cubeShaderSource string

//go:embed shaders/terrain.wgsl
var terrainShaderSource string

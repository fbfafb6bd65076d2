package geom

// Color is a linear RGBA color with straight (non-premultiplied) alpha.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	White       = Color{1, 1, 1, 1}
	Black       = Color{0, 0, 0, 1}
	Transparent = Color{}
)

// RGB creates an opaque color.
func RGB(r, g, b float32) Color { return Color{r, g, b, 1} }

// RGBA creates a color with alpha.
func RGBA(r, g, b, a float32) Color { return Color{r, g, b, a} }

// Hex creates an opaque color from a 0xRRGGBB value.
func Hex(v uint32) Color {
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
		A: 1,
	}
}

// Array returns the components as [r, g, b, a].
func (c Color) Array() [4]float32 { return [4]float32{c.R, c.G, c.B, c.A} }

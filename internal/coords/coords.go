// Package coords converts between the resolution-independent coordinates
// exchanged with the inference service, physical screen pixels, and the
// 0..65535 absolute space used by pointer injection.
package coords

import "math"

const (
	// NormalizedMax is the upper bound of both normalized axes.
	NormalizedMax = 1000.0

	// AbsoluteMax is the upper bound of the device-absolute space.
	AbsoluteMax = 65535
)

// Point is a normalized position in [0,1000]x[0,1000].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DevicePoint is a position in the [0,65535]x[0,65535] injection space.
type DevicePoint struct {
	X int32
	Y int32
}

// Mapper performs the two linear transforms for one physical display size.
type Mapper struct {
	Width  int
	Height int
}

// NewMapper returns a Mapper for a width x height display.
func NewMapper(width, height int) Mapper {
	return Mapper{Width: width, Height: height}
}

// Clamp limits p to the normalized range. NaN collapses to 0.
func Clamp(p Point) Point {
	return Point{X: clampAxis(p.X), Y: clampAxis(p.Y)}
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > NormalizedMax {
		return NormalizedMax
	}
	return v
}

// ToPhysical clamps p and scales it to a pixel in [0,Width)x[0,Height).
func (m Mapper) ToPhysical(p Point) (int, int) {
	p = Clamp(p)
	return scaleToPixels(p.X, m.Width), scaleToPixels(p.Y, m.Height)
}

func scaleToPixels(v float64, size int) int {
	if size <= 0 {
		return 0
	}
	px := int(v * float64(size) / NormalizedMax)
	if px >= size {
		px = size - 1
	}
	return px
}

// ToDeviceAbsolute scales a physical pixel to the injection space.
// A display with a non-positive dimension maps everything to (0,0).
func (m Mapper) ToDeviceAbsolute(x, y int) DevicePoint {
	if m.Width <= 0 || m.Height <= 0 {
		return DevicePoint{}
	}
	return DevicePoint{
		X: int32(int64(x) * AbsoluteMax / int64(m.Width)),
		Y: int32(int64(y) * AbsoluteMax / int64(m.Height)),
	}
}

// Map runs both transforms.
func (m Mapper) Map(p Point) DevicePoint {
	return m.ToDeviceAbsolute(m.ToPhysical(p))
}

// Lerp interpolates between two device points; t is expected in [0,1].
func Lerp(a, b DevicePoint, t float64) DevicePoint {
	return DevicePoint{
		X: a.X + int32(float64(b.X-a.X)*t),
		Y: a.Y + int32(float64(b.Y-a.Y)*t),
	}
}

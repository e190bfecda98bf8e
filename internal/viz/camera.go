package viz

import (
	"math"

	"github.com/san-kum/leibniz/internal/vector"
)

// Camera projects body positions onto the canvas. With no rotation it
// looks down the z axis onto the xy plane.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }
func (c *Camera) Reset()            { *c = Camera{Zoom: 1} }

// rotate applies the x, y then z rotations to a 3-vector.
func (c *Camera) rotate(p vector.Vector) (x, y, z float64) {
	x, y, z = p[0], p[1], p[2]
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	y, z = y*cx-z*sx, y*sx+z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	x, z = x*cy+z*sy, -x*sy+z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	x, y = x*cz-y*sz, x*sz+y*cz
	return x, y, z
}

// Project maps p to dot coordinates on a w x h dot canvas where extent is
// the world distance shown between the centre and the nearer edge. Points
// behind the eye or off the canvas are reported as not visible.
func (c *Camera) Project(p vector.Vector, extent float64, w, h int) (int, int, bool) {
	if p.Dim() < 3 || !p.IsValid() {
		return 0, 0, false
	}
	if extent <= 0 {
		extent = 1
	}
	x, y, z := c.rotate(p)

	dist := 10 * extent
	if z >= dist {
		return 0, 0, false
	}
	persp := dist / (dist - z)

	half := math.Min(float64(w), float64(h)) / 2
	scale := half / extent * c.Zoom * persp
	sx := int(math.Round(x*scale)) + w/2
	sy := int(math.Round(-y*scale)) + h/2
	return sx, sy, sx >= 0 && sx < w && sy >= 0 && sy < h
}

package shade

import (
	"math"
	"testing"

	"github.com/unixpickle/dist-render/frame"
)

func TestSceneDeterministic(t *testing.T) {
	cfg := frame.Config{Width: 32, Height: 24, Size: 4}
	s1 := DefaultScene()
	s2 := DefaultScene()
	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			c1 := s1.Shade(cfg, row, col)
			c2 := s2.Shade(cfg.WithRank(3), row, col)
			if c1 != c2 {
				t.Fatalf("pixel (%d, %d) differs: %v vs %v", row, col, c1, c2)
			}
			for _, x := range c1 {
				if x < 0 || x > 1 {
					t.Fatalf("pixel (%d, %d) out of range: %v", row, col, c1)
				}
			}
		}
	}
}

func TestSceneHits(t *testing.T) {
	s := DefaultScene()
	cfg := frame.Config{Width: 64, Height: 48, Size: 1}

	// The red sphere sits in the middle of the view.
	center := s.Shade(cfg, cfg.Height/2, cfg.Width/2)
	if !(center[0] > center[1] && center[0] > center[2]) {
		t.Errorf("center pixel should be red: %v", center)
	}

	// The top row looks over everything.
	if top := s.Shade(cfg, 0, 0); top != s.Background {
		t.Errorf("top-left pixel should be background: %v", top)
	}

	// The bottom row hits the floor.
	if bottom := s.Shade(cfg, cfg.Height-1, 0); bottom == s.Background {
		t.Error("bottom-left pixel should hit the floor")
	}
}

func TestSceneShadow(t *testing.T) {
	white := frame.Color{1, 1, 1}
	s := &Scene{
		Camera:  Camera{Position: Vec3{0, 5, -5}, Target: Vec3{0, 0, 0}, FOV: 0.1},
		Spheres: []Sphere{{Center: Vec3{5, 2, 0}, Radius: 0.5, Color: white}},
		Floor:   &Plane{Height: 0, Tile: 100, Colors: [2]frame.Color{white, white}},
		Light:   Vec3{0, 10, 0},
		Ambient: 0.2,
	}
	cfg := frame.Config{Width: 1, Height: 1, Size: 1}

	lit := s.Shade(cfg, 0, 0)
	s.Spheres[0].Center = Vec3{0, 2, 0}
	shadowed := s.Shade(cfg, 0, 0)

	if math.Abs(lit[0]-1) > 1e-6 {
		t.Errorf("lit floor should be fully bright: %v", lit)
	}
	if math.Abs(shadowed[0]-s.Ambient) > 1e-6 {
		t.Errorf("shadowed floor should only get ambient light: %v", shadowed)
	}
}

func TestVec3(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	if x.Cross(y) != (Vec3{0, 0, 1}) {
		t.Errorf("unexpected cross product: %v", x.Cross(y))
	}
	if n := (Vec3{3, 4, 0}).Norm(); n != 5 {
		t.Errorf("unexpected norm: %f", n)
	}
	if d := x.Add(y).Sub(y).Dot(x); d != 1 {
		t.Errorf("unexpected dot product: %f", d)
	}
}

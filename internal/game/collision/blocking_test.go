package collision

import (
	"testing"

	"tile-engine/internal/game/spatial"
)

type testBody struct {
	rect  spatial.Rect
	speed float64
}

func newTestBody(x, y, w, h float64) *testBody {
	return &testBody{rect: spatial.Rect{X: x, Y: y, W: w, H: h}, speed: 0.3}
}

func (b *testBody) Bounds() spatial.Rect   { return b.rect }
func (b *testBody) Center() spatial.Vec2   { return b.rect.Center() }
func (b *testBody) SetX(x float64)         { b.rect.X = x }
func (b *testBody) SetY(y float64)         { b.rect.Y = y }
func (b *testBody) SetSpeed(speed float64) { b.speed = speed }

func TestResolveBlocking(t *testing.T) {
	tests := []struct {
		name        string
		layout      string
		body        *testBody
		wantX       float64
		wantY       float64
		wantContact Contact
	}{
		{
			name:        "north wall",
			layout:      "[Layout]\n0 1\n1 1\n",
			body:        newTestBody(0, 34, 64, 64),
			wantX:       0,
			wantY:       40,
			wantContact: ContactN,
		},
		{
			name:        "south wall",
			layout:      "[Layout]\n1 1\n0 1\n",
			body:        newTestBody(0, 30, 64, 64),
			wantX:       0,
			wantY:       24,
			wantContact: ContactS,
		},
		{
			name:        "west wall",
			layout:      "[Layout]\n0 1\n",
			body:        newTestBody(34, 0, 64, 64),
			wantX:       40,
			wantY:       0,
			wantContact: ContactW,
		},
		{
			name:        "east wall",
			layout:      "[Layout]\n1 0\n",
			body:        newTestBody(30, 0, 64, 64),
			wantX:       24,
			wantY:       0,
			wantContact: ContactE,
		},
		{
			name:        "north-west corner",
			layout:      "[Layout]\n0 1\n1 1\n",
			body:        newTestBody(34, 34, 64, 64),
			wantX:       40,
			wantY:       40,
			wantContact: ContactNW,
		},
		{
			name:        "south-east corner",
			layout:      "[Layout]\n1 1\n1 0\n",
			body:        newTestBody(30, 30, 64, 64),
			wantX:       24,
			wantY:       24,
			wantContact: ContactSE,
		},
		{
			name:        "corner needs both axes past threshold",
			layout:      "[Layout]\n0 1\n1 1\n",
			body:        newTestBody(44, 34, 64, 64),
			wantX:       44,
			wantY:       34,
			wantContact: 0,
		},
		{
			name:        "within threshold",
			layout:      "[Layout]\n0 1\n1 1\n",
			body:        newTestBody(0, 44, 64, 64),
			wantX:       0,
			wantY:       44,
			wantContact: 0,
		},
		{
			name:        "special cells do not block",
			layout:      "[Layout]\n2 1\n1 1\n",
			body:        newTestBody(0, 34, 64, 64),
			wantX:       0,
			wantY:       34,
			wantContact: 0,
		},
		{
			name:        "single cell layer has no neighbours",
			layout:      "[Layout]\n1\n",
			body:        newTestBody(-10, -10, 64, 64),
			wantX:       -10,
			wantY:       -10,
			wantContact: 0,
		},
		{
			name:        "later neighbour overwrites earlier",
			layout:      "[Layout]\n0\n1\n0\n",
			body:        newTestBody(0, 36, 64, 128),
			wantX:       0,
			wantY:       24,
			wantContact: ContactN | ContactS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := MustLoadLayout(tt.layout, DefaultConfig())
			startSpeed := tt.body.speed

			got := layer.ResolveBlocking(tt.body)

			if got != tt.wantContact {
				t.Errorf("contact = %v, want %v", got, tt.wantContact)
			}
			if tt.body.rect.X != tt.wantX || tt.body.rect.Y != tt.wantY {
				t.Errorf("position = (%v,%v), want (%v,%v)",
					tt.body.rect.X, tt.body.rect.Y, tt.wantX, tt.wantY)
			}

			wantSpeed := startSpeed
			if tt.wantContact != 0 {
				wantSpeed = 0
			}
			if tt.body.speed != wantSpeed {
				t.Errorf("speed = %v, want %v", tt.body.speed, wantSpeed)
			}
		})
	}
}

func TestResolveBlockingIsIdempotent(t *testing.T) {
	layer := MustLoadLayout("[Layout]\n0 1\n1 1\n", DefaultConfig())
	body := newTestBody(0, 34, 64, 64)

	if c := layer.ResolveBlocking(body); c != ContactN {
		t.Fatalf("first pass contact = %v, want n", c)
	}
	after := body.rect

	body.speed = 0.2
	if c := layer.ResolveBlocking(body); c != 0 {
		t.Errorf("second pass contact = %v, want none", c)
	}
	if body.rect != after {
		t.Errorf("second pass moved body from %+v to %+v", after, body.rect)
	}
	if body.speed != 0.2 {
		t.Errorf("second pass changed speed to %v", body.speed)
	}
}

func TestResolveBlockingRespectsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 8
	layer := MustLoadLayout("[Layout]\n0 1\n1 1\n", cfg)
	body := newTestBody(0, 50, 64, 64)

	if c := layer.ResolveBlocking(body); c != ContactN {
		t.Fatalf("contact = %v, want n", c)
	}
	if body.rect.Y != 56 {
		t.Errorf("Y = %v, want 56", body.rect.Y)
	}
}

func TestContactString(t *testing.T) {
	tests := []struct {
		c    Contact
		want string
	}{
		{0, "none"},
		{ContactN, "n"},
		{ContactN | ContactS, "n|s"},
		{ContactW | ContactSE, "w|se"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Contact(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}

	if (ContactN | ContactE | ContactSW).Count() != 3 {
		t.Error("Count should be 3")
	}
}

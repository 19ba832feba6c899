package compositor

// DamageRegion is an axis-aligned rectangle in framebuffer coordinates,
// half-open on the bottom-right: it covers [X, X+W) x [Y, Y+H).
type DamageRegion struct {
	X, Y, W, H int
}

func (d DamageRegion) x1() int { return d.X + d.W }
func (d DamageRegion) y1() int { return d.Y + d.H }

// IntersectionPoint is a rectangle expressed in a window's local
// coordinates, describing how a damage region clips into that window. The
// zero value is the identity element: a zero-area rectangle at the origin,
// meaning "no intersection".
type IntersectionPoint struct {
	X0, Y0, X1, Y1 int
}

// none is the identity element for union: a zero-area rectangle at (0, 0).
var none = IntersectionPoint{}

// IsNone reports whether p is the identity element (no intersection).
func (p IntersectionPoint) IsNone() bool { return p == none }

// Width and Height report the rectangle's extent; zero for the identity.
func (p IntersectionPoint) Width() int  { return p.X1 - p.X0 }
func (p IntersectionPoint) Height() int { return p.Y1 - p.Y0 }

// Union computes the axis-aligned bounding union of two intersection
// points. Union is commutative and associative, and none is a neutral
// element (verified by property tests) — but a direct min/max union with
// the identity (0,0,0,0) would corrupt a real rectangle not anchored at
// the origin, so the identity is special-cased.
func (p IntersectionPoint) Union(o IntersectionPoint) IntersectionPoint {
	if p.IsNone() {
		return o
	}
	if o.IsNone() {
		return p
	}
	return IntersectionPoint{
		X0: min(p.X0, o.X0),
		Y0: min(p.Y0, o.Y0),
		X1: max(p.X1, o.X1),
		Y1: max(p.Y1, o.Y1),
	}
}

// UnionAll folds Union over a slice, starting from the identity element.
func UnionAll(points []IntersectionPoint) IntersectionPoint {
	result := none
	for _, p := range points {
		result = result.Union(p)
	}
	return result
}

// Intersect computes how damage region d clips into window rectangle w,
// per the half-open interval test in §4.3. Returns the identity element
// (and ok=false) when the rectangles do not overlap.
func Intersect(d DamageRegion, w DamageRegion) (IntersectionPoint, bool) {
	wx1, wy1 := w.x1(), w.y1()
	dx1, dy1 := d.x1(), d.y1()

	if !(d.X < wx1 && dx1 > w.X && d.Y < wy1 && dy1 > w.Y) {
		return none, false
	}

	return IntersectionPoint{
		X0: max(d.X, w.X) - w.X,
		Y0: max(d.Y, w.Y) - w.Y,
		X1: min(dx1, wx1) - w.X,
		Y1: min(dy1, wy1) - w.Y,
	}, true
}

// clipToWindow clips a local rectangle (x, y, w, h) to the window's own
// bounds, as DamageWindow requests must do before being recorded.
func clipToWindow(x, y, w, h, winW, winH int) (int, int, int, int) {
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > winW {
		w = winW - x
	}
	if y+h > winH {
		h = winH - y
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return x, y, w, h
}

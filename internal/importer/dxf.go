package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/cutopt/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// point is a 2D coordinate in drawing units (assumed mm).
type point struct {
	x, y float64
}

// segment is a line segment between two points, used for chaining
// disconnected LINE and ARC entities into closed loops.
type segment struct {
	start point
	end   point
}

// bounds is an axis-aligned bounding box accumulator.
type bounds struct {
	minX, minY float64
	maxX, maxY float64
	empty      bool
}

func newBounds() bounds {
	return bounds{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
		empty: true,
	}
}

func (b *bounds) add(p point) {
	b.empty = false
	b.minX = math.Min(b.minX, p.x)
	b.minY = math.Min(b.minY, p.y)
	b.maxX = math.Max(b.maxX, p.x)
	b.maxY = math.Max(b.maxY, p.y)
}

func (b bounds) size() (length, width float64) {
	if b.empty {
		return 0, 0
	}
	return b.maxX - b.minX, b.maxY - b.minY
}

// ImportDXF imports boxes from a DXF drawing. Every closed shape
// (LWPOLYLINE, CIRCLE, or chain of connected LINEs and ARCs) contributes
// one box sized to the shape's bounding rectangle. Curved geometry is
// conservative: the bounding box always covers the full curve.
func ImportDXF(path string) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var boxes []bounds
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if len(e.Vertices) < 3 {
				result.Warnings = append(result.Warnings,
					"Skipped LWPOLYLINE with fewer than 3 vertices")
				continue
			}
			boxes = append(boxes, lwPolylineBounds(e))

		case *entity.Circle:
			b := newBounds()
			b.add(point{e.Center[0] - e.Radius, e.Center[1] - e.Radius})
			b.add(point{e.Center[0] + e.Radius, e.Center[1] + e.Radius})
			boxes = append(boxes, b)

		case *entity.Arc:
			pts := arcPoints(e, 32)
			for i := 0; i < len(pts)-1; i++ {
				segments = append(segments, segment{start: pts[i], end: pts[i+1]})
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: point{e.Start[0], e.Start[1]},
				end:   point{e.End[0], e.End[1]},
			})

		default:
			// Unsupported entity types are silently skipped.
		}
	}

	boxes = append(boxes, chainSegments(segments, 0.01)...)
	if len(boxes) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	// Largest shapes first so box numbering is stable regardless of the
	// drawing's entity order.
	sort.SliceStable(boxes, func(i, j int) bool {
		li, wi := boxes[i].size()
		lj, wj := boxes[j].size()
		return li*wi > lj*wj
	})

	num := 0
	for _, b := range boxes {
		length, width := b.size()
		if length < 0.01 || width < 0.01 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f mm)", length, width))
			continue
		}
		num++
		label := fmt.Sprintf("DXF Shape %d", num)
		result.Boxes = append(result.Boxes, model.NewBox(length, width, true, label))
	}

	if len(result.Boxes) == 0 {
		result.Errors = append(result.Errors, "No usable shapes found in DXF file")
	}
	return result
}

// lwPolylineBounds computes the bounding box of a polyline, widening it
// by the sagitta of every bulged segment so arcs stay covered.
func lwPolylineBounds(lw *entity.LwPolyline) bounds {
	b := newBounds()
	for _, v := range lw.Vertices {
		b.add(point{v[0], v[1]})
	}

	for i, bulge := range lw.Bulges {
		if math.Abs(bulge) < 1e-9 || i >= len(lw.Vertices) {
			continue
		}
		next := (i + 1) % len(lw.Vertices)
		p1 := point{lw.Vertices[i][0], lw.Vertices[i][1]}
		p2 := point{lw.Vertices[next][0], lw.Vertices[next][1]}

		dx, dy := p2.x-p1.x, p2.y-p1.y
		chord := math.Sqrt(dx*dx + dy*dy)
		if chord < 1e-9 {
			continue
		}
		sagitta := math.Abs(bulge) * chord / 2

		// The arc apex sits one sagitta off the chord midpoint, on the
		// side the bulge sign selects.
		perpX, perpY := -dy/chord, dx/chord
		if bulge < 0 {
			perpX, perpY = -perpX, -perpY
		}
		b.add(point{
			(p1.x+p2.x)/2 + perpX*sagitta,
			(p1.y+p2.y)/2 + perpY*sagitta,
		})
	}
	return b
}

// arcPoints samples a DXF ARC entity into a polyline.
func arcPoints(a *entity.Arc, numSegments int) []point {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius

	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	if endRad <= startRad {
		endRad += 2 * math.Pi
	}

	pts := make([]point, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startRad + t*(endRad-startRad)
		pts[i] = point{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}
	return pts
}

// chainSegments connects loose segments into closed loops and returns the
// bounding box of each loop. tolerance is the maximum endpoint distance
// still treated as connected.
func chainSegments(segs []segment, tolerance float64) []bounds {
	used := make([]bool, len(segs))
	var out []bounds

	for start := range segs {
		if used[start] {
			continue
		}

		chain := []point{segs[start].start, segs[start].end}
		used[start] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]
			for i, seg := range segs {
				if used[i] {
					continue
				}
				if pointsClose(tail, seg.start, tolerance) {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if pointsClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		// Only closed loops with area count as shapes.
		if len(chain) < 4 || !pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			continue
		}
		b := newBounds()
		for _, p := range chain {
			b.add(p)
		}
		out = append(out, b)
	}
	return out
}

// pointsClose reports whether two points are within the given tolerance.
func pointsClose(a, b point, tolerance float64) bool {
	dx, dy := a.x-b.x, a.y-b.y
	return math.Sqrt(dx*dx+dy*dy) <= tolerance
}

package viz

import (
	"math"

	"github.com/mcalder42/vicsek/internal/flock"
)

// FieldRenderer draws the periodic box onto a braille canvas: one dot per
// agent plus a short segment pointing along its heading. Leaders get a
// heavier marker. World y points up; canvas rows grow down.
type FieldRenderer struct {
	canvas  *Canvas
	leaders int
}

// NewFieldRenderer builds a renderer of the given character size.
func NewFieldRenderer(w, h, leaders int) *FieldRenderer {
	return &FieldRenderer{canvas: NewCanvas(w, h), leaders: leaders}
}

// Render draws the current model state and returns the frame as a string.
func (r *FieldRenderer) Render(m *flock.Model) string {
	r.canvas.Clear()

	cw := r.canvas.Width * 2
	ch := r.canvas.Height * 4
	l := m.Length()
	sx := float64(cw) / l
	sy := float64(ch) / l

	xs, ys := m.Positions()
	headings := m.Headings()

	// Heading segment length in sub-pixels, roughly one interaction radius
	// but clamped so small boxes stay readable.
	seg := sx * 0.4
	if seg < 2 {
		seg = 2
	}
	if seg > 6 {
		seg = 6
	}

	for i := range xs {
		px := int(xs[i] * sx)
		py := ch - 1 - int(ys[i]*sy)
		r.canvas.Set(px, py)

		hx := px + int(seg*math.Cos(headings[i]))
		hy := py - int(seg*math.Sin(headings[i]))
		r.canvas.DrawLine(px, py, hx, hy)

		if i < r.leaders {
			r.canvas.Set(px+1, py)
			r.canvas.Set(px-1, py)
			r.canvas.Set(px, py+1)
			r.canvas.Set(px, py-1)
		}
	}

	return r.canvas.String()
}

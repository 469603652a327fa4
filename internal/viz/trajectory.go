package viz

import (
	"github.com/guptarohit/asciigraph"
)

// OrderTrace plots an order parameter time series as an ascii chart. The
// series is windowed to the most recent maxPoints entries so long runs keep a
// stable width.
func OrderTrace(values []float64, width, height, maxPoints int, caption string) string {
	if len(values) < 2 {
		return ""
	}
	if maxPoints > 0 && len(values) > maxPoints {
		values = values[len(values)-maxPoints:]
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Caption(caption),
	)
}

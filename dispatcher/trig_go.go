//go:build !tinygo

package dispatcher

import "math"

// arcCos and arcSin back arc tessellation's per-sub-move center/point
// trig. The host build keeps full float64 precision (see trig_tinygo.go
// for the tinygo build's float32 tinymath substitute).
func arcCos(x float64) float64 { return math.Cos(x) }
func arcSin(x float64) float64 { return math.Sin(x) }

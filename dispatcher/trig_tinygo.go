//go:build tinygo

package dispatcher

import "github.com/orsinium-labs/tinymath"

// arcCos and arcSin back arc tessellation's per-sub-move center/point
// trig. On tinygo builds they go through tinymath's float32 table-based
// implementation (the same dependency scottfeldman-drivers' tmc5160
// driver uses for its own math), trading float64 precision for the
// lighter instruction footprint an MCU's tessellation loop runs many
// times per arc.
func arcCos(x float64) float64 { return float64(tinymath.Cos(float32(x))) }
func arcSin(x float64) float64 { return float64(tinymath.Sin(float32(x))) }

package model

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
)

// poolingGrids are the side lengths of the average-pooling pyramids.
var poolingGrids = []int{1, 2, 4, 8}

// poolingStats is the number of per-channel summary statistics: std, min, max.
const poolingStats = 3

// PoolingBackbone is a parameter-free backbone: a spatial pyramid of average
// pools plus per-channel spread statistics. It needs no model file and runs
// everywhere.
type PoolingBackbone struct {
	channels int
	dim      int
}

// NewPoolingBackbone returns a pooling backbone for images with the given channel count.
func NewPoolingBackbone(channels int) *PoolingBackbone {
	cells := 0
	for _, g := range poolingGrids {
		cells += g * g
	}
	return &PoolingBackbone{channels: channels, dim: channels * (cells + poolingStats)}
}

func (p *PoolingBackbone) Name() string    { return "pooling" }
func (p *PoolingBackbone) FeatureDim() int { return p.dim }
func (p *PoolingBackbone) Close() error    { return nil }

// Embed pools every image of the batch.
func (p *PoolingBackbone) Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	shape := batch.Images.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	data := batch.Float32s()

	out := mat.NewDense(n, p.dim, nil)
	plane := make([]float64, h*w)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := out.RawRowView(i)
		k := 0
		for ch := range min(c, p.channels) {
			src := data[(i*c+ch)*h*w : (i*c+ch+1)*h*w]
			for j, v := range src {
				plane[j] = float64(v)
			}
			for _, g := range poolingGrids {
				k += poolGrid(row[k:], plane, h, w, g)
			}
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range plane {
				lo, hi = min(lo, v), max(hi, v)
			}
			row[k] = stat.StdDev(plane, nil)
			row[k+1] = lo
			row[k+2] = hi
			k += poolingStats
		}
	}
	return out, nil
}

// poolGrid writes the mean of each cell of a g x g grid over plane into dst
// and returns the number of values written.
func poolGrid(dst, plane []float64, h, w, g int) int {
	for gy := range g {
		y0, y1 := gy*h/g, max((gy+1)*h/g, gy*h/g+1)
		for gx := range g {
			x0, x1 := gx*w/g, max((gx+1)*w/g, gx*w/g+1)
			var sum float64
			count := 0
			for y := y0; y < min(y1, h); y++ {
				for x := x0; x < min(x1, w); x++ {
					sum += plane[y*w+x]
					count++
				}
			}
			if count > 0 {
				dst[gy*g+gx] = sum / float64(count)
			}
		}
	}
	return g * g
}

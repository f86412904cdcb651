package dataset

import (
	"context"
	"fmt"
)

// Chunk is one block of a variable: Origin is the index of its first
// element and Shape its extent along each dimension.
type Chunk struct {
	Origin []int
	Shape  []int
}

// ApplyChunks sets the chunk shape of every variable from plan. Dimensions
// absent from the plan, or planned with a size <= 0, span one chunk.
// Plan entries naming dimensions no variable uses are ignored.
func (d *Dataset) ApplyChunks(plan ChunkPlan) {
	for _, v := range d.vars {
		v.chunks = make([]int, len(v.Dims))
		for i, dim := range v.Dims {
			v.chunks[i] = plan[dim]
		}
	}
}

// ChunkShape returns the effective chunk size along each dimension.
func (v *Variable) ChunkShape() []int {
	shape := v.Shape()
	out := make([]int, len(shape))
	for i, n := range shape {
		out[i] = n
		if i < len(v.chunks) && v.chunks[i] > 0 && v.chunks[i] < n {
			out[i] = v.chunks[i]
		}
	}
	return out
}

// Chunks returns the blocks of v in row-major order. Edge blocks are
// truncated to the variable's extent. A scalar yields one empty chunk.
func (v *Variable) Chunks() []Chunk {
	shape := v.Shape()
	size := v.ChunkShape()
	counts := make([]int, len(shape))
	total := 1
	for i, n := range shape {
		if n > 0 {
			counts[i] = (n + size[i] - 1) / size[i]
		}
		total *= counts[i]
	}

	out := make([]Chunk, 0, total)
	idx := make([]int, len(shape))
	for range total {
		c := Chunk{Origin: make([]int, len(shape)), Shape: make([]int, len(shape))}
		for i := range shape {
			c.Origin[i] = idx[i] * size[i]
			c.Shape[i] = min(size[i], shape[i]-c.Origin[i])
		}
		out = append(out, c)
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < counts[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// ReadChunk reads the values of one block in row-major order.
func (v *Variable) ReadChunk(ctx context.Context, c Chunk) ([]float64, error) {
	shape := v.Shape()
	if len(c.Origin) != len(shape) || len(c.Shape) != len(shape) {
		return nil, fmt.Errorf("chunk of rank %d for %s of rank %d", len(c.Origin), v.Name, len(shape))
	}
	for i := range shape {
		if c.Origin[i] < 0 || c.Shape[i] < 0 || c.Origin[i]+c.Shape[i] > shape[i] {
			return nil, fmt.Errorf("chunk %v+%v outside shape %v of %s", c.Origin, c.Shape, shape, v.Name)
		}
	}
	if len(shape) == 0 {
		return v.data.Read(ctx, 0, 1)
	}

	rows, err := v.data.Read(ctx, c.Origin[0], c.Origin[0]+c.Shape[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", v.Name, err)
	}
	if len(shape) == 1 {
		return rows, nil
	}

	// Gather the block from the full rows. strides are over the row shape.
	inner := shape[1:]
	strides := make([]int, len(inner))
	s := 1
	for i := len(inner) - 1; i >= 0; i-- {
		strides[i] = s
		s *= inner[i]
	}
	rowLen := s

	n := product(c.Shape)
	out := make([]float64, 0, n)
	if n == 0 {
		return out, nil
	}
	idx := make([]int, len(inner))
	for r := range c.Shape[0] {
		base := r * rowLen
		for {
			off := base
			for i := range inner {
				off += (c.Origin[i+1] + idx[i]) * strides[i]
			}
			out = append(out, rows[off])
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < c.Shape[i+1] {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				break
			}
		}
	}
	return out, nil
}

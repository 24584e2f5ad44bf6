package cellquant

import (
	"container/heap"
	"fmt"
)

// floodItem is one pixel queued for watershed growth. Pixels are
// processed in ascending elevation; equal elevations pop in insertion
// order, which fixes the assignment of ridge pixels contested by two
// seeds.
type floodItem struct {
	elevation float32
	age       int64
	index     int
}

type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].elevation != q[j].elevation {
		return q[i].elevation < q[j].elevation
	}
	return q[i].age < q[j].age
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(floodItem)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// watershedFlood grows the seed labels over the elevation landscape,
// restricted to masked pixels. Each masked pixel ends up with the label
// of the seed whose flood reaches it first when water rises uniformly.
// Seeds outside the mask are dropped; unmasked pixels stay 0.
func watershedFlood(elevation Mat, seeds *LabelMap, mask []bool) (*LabelMap, error) {
	rows, cols := elevation.Rows(), elevation.Cols()
	if seeds.Rows != rows || seeds.Cols != cols || len(mask) != rows*cols {
		return nil, fmt.Errorf("elevation %dx%d, seeds %dx%d, mask %d: shapes differ",
			rows, cols, seeds.Rows, seeds.Cols, len(mask))
	}

	elev := elevation.DataFloat32()
	out := NewLabelMap(rows, cols)

	q := make(floodQueue, 0, 1024)
	var age int64
	for i, label := range seeds.Pix {
		if label == 0 || !mask[i] {
			continue
		}
		out.Pix[i] = label
		q = append(q, floodItem{elevation: elev[i], age: age, index: i})
		age++
	}
	heap.Init(&q)

	for q.Len() > 0 {
		item := heap.Pop(&q).(floodItem)
		r, c := item.index/cols, item.index%cols
		label := out.Pix[item.index]
		for _, d := range neighbors4 {
			nr, nc := r+d[0], c+d[1]
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			nidx := nr*cols + nc
			if !mask[nidx] || out.Pix[nidx] != 0 {
				continue
			}
			out.Pix[nidx] = label
			heap.Push(&q, floodItem{elevation: elev[nidx], age: age, index: nidx})
			age++
		}
	}

	return out, nil
}

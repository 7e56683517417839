package backend

import "github.com/tsawler/attachcore/model"

// columnAlignTolerancePt groups vertical edges that land within this many
// points of each other, the table-grid signal spec.md §3 asks
// DrawingObject to carry (§9 open question: "only vector paths" is the
// decision recorded in DESIGN.md).
const columnAlignTolerancePt = 2.0

// markColumnAlignment flags vertical vector paths/line segments whose left
// edge lines up with at least two others at a stable x-offset, in place.
func markColumnAlignment(objs []model.DrawingObject) {
	var buckets []struct {
		x     float64
		count int
	}
	bucketOf := func(x float64) int {
		for i, b := range buckets {
			if absF(b.x-x) <= columnAlignTolerancePt {
				return i
			}
		}
		buckets = append(buckets, struct {
			x     float64
			count int
		}{x: x, count: 0})
		return len(buckets) - 1
	}
	idxOf := make([]int, len(objs))
	for i, o := range objs {
		if o.Kind == model.DrawingRaster {
			idxOf[i] = -1
			continue
		}
		if !o.Vertical {
			idxOf[i] = -1
			continue
		}
		bi := bucketOf(o.Rect.X0)
		buckets[bi].count++
		idxOf[i] = bi
	}
	for i, bi := range idxOf {
		if bi >= 0 && buckets[bi].count >= 3 {
			objs[i].ColumnAligned = true
		}
	}
}

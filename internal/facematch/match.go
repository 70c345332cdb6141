package facematch

import (
	"sort"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Region is a named face area known to the library (a PhotoPrism marker).
type Region struct {
	ID        string
	Name      string
	SubjectID string
	Box       photo.BoundingBox
}

// Match pairs face index Face with region index Region.
type Match struct {
	Face   int
	Region int
	IoU    float64
}

// Assign matches faces to regions one-to-one. Pairs are taken greedily by
// descending IoU, so two faces never claim the same region. Pairs below
// threshold are never matched. The result is indexed by face; -1 means
// unmatched.
func Assign(faces []photo.BoundingBox, regions []Region, threshold float64) []int {
	var pairs []Match
	for fi, f := range faces {
		for ri, r := range regions {
			if iou := IoU(f, r.Box); iou >= threshold && iou > 0 {
				pairs = append(pairs, Match{Face: fi, Region: ri, IoU: iou})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].IoU > pairs[j].IoU })

	assigned := make([]int, len(faces))
	for i := range assigned {
		assigned[i] = -1
	}
	taken := make([]bool, len(regions))
	for _, p := range pairs {
		if assigned[p.Face] >= 0 || taken[p.Region] {
			continue
		}
		assigned[p.Face] = p.Region
		taken[p.Region] = true
	}
	return assigned
}

// Best returns the region overlapping box the most, if it reaches threshold.
func Best(box photo.BoundingBox, regions []Region, threshold float64) (Region, float64, bool) {
	best, bestIoU := -1, 0.0
	for i, r := range regions {
		if iou := IoU(box, r.Box); iou > bestIoU {
			best, bestIoU = i, iou
		}
	}
	if best < 0 || bestIoU < threshold {
		return Region{}, 0, false
	}
	return regions[best], bestIoU, true
}

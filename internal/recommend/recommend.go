// Package recommend picks a cross-moment "best of" set from the cluster
// representatives, trading quality against content variety.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// Policy selects the recommendation strategy.
type Policy string

const (
	// PolicyBestWithDiversity greedily maximises 0.5*diversity + 0.5*quality.
	PolicyBestWithDiversity Policy = "best"
	// PolicyMaxDiversity fills per-bucket quotas first.
	PolicyMaxDiversity Policy = "diverse"
)

// ParsePolicy converts a user supplied name, empty selects PolicyBestWithDiversity.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyBestWithDiversity:
		return PolicyBestWithDiversity, nil
	case PolicyMaxDiversity:
		return PolicyMaxDiversity, nil
	default:
		return "", fmt.Errorf("unknown recommendation policy %q (use %q or %q)", s, PolicyBestWithDiversity, PolicyMaxDiversity)
	}
}

const (
	newBucketBonus   = 0.4
	timeSpreadBonus  = 0.3
	scoreSpreadBonus = 0.3
	timeSpread       = time.Hour
	scoreSpread      = 0.1
)

// Recommender is stateless; Recommend is a pure function of its inputs.
type Recommender struct {
	scorer *scoring.Scorer
	quota  [3]float64 // indexed by photo.ContentBucket
}

func New(scorer *scoring.Scorer, cfg config.RecommendConfig) *Recommender {
	return &Recommender{
		scorer: scorer,
		quota:  [3]float64{cfg.Quota.NoFaces, cfg.Quota.SingleFace, cfg.Quota.Group},
	}
}

type candidate struct {
	photo photo.Photo
	score float64
	order int
}

// Recommend returns at most n distinct photos from winners. Screenshots are excluded.
func (r *Recommender) Recommend(winners []photo.Photo, n int, policy Policy) []photo.Photo {
	if n <= 0 {
		return []photo.Photo{}
	}
	candidates := r.candidates(winners)
	var picked []candidate
	switch policy {
	case PolicyMaxDiversity:
		picked = r.maxDiversity(candidates, n)
	default:
		picked = r.bestWithDiversity(candidates, n)
	}
	out := make([]photo.Photo, len(picked))
	for i, c := range picked {
		out[i] = c.photo
	}
	return out
}

// candidates dedupes by id and drops screenshots, keeping input order.
func (r *Recommender) candidates(winners []photo.Photo) []candidate {
	seen := make(map[string]bool, len(winners))
	out := make([]candidate, 0, len(winners))
	for _, p := range winners {
		if p.Screenshot || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, candidate{photo: p, score: r.scorer.SmartScore(p), order: len(out)})
	}
	return out
}

func (r *Recommender) bestWithDiversity(candidates []candidate, n int) []candidate {
	if len(candidates) == 0 {
		return nil
	}
	remaining := append([]candidate(nil), candidates...)
	sortByScore(remaining)

	picked := []candidate{remaining[0]}
	remaining = remaining[1:]

	for len(picked) < n && len(remaining) > 0 {
		bestIdx := -1
		bestValue := math.Inf(-1)
		for i, c := range remaining {
			value := 0.5*diversity(c, picked) + 0.5*c.score
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return picked
}

// diversity rewards an uncovered bucket, time distance and a distinct score.
func diversity(c candidate, picked []candidate) float64 {
	var d float64
	bucketSeen, nearInTime, nearInScore := false, false, false
	for _, p := range picked {
		if p.photo.Bucket() == c.photo.Bucket() {
			bucketSeen = true
		}
		if absDuration(c.photo.TakenAt.Sub(p.photo.TakenAt)) <= timeSpread {
			nearInTime = true
		}
		if math.Abs(c.score-p.score) <= scoreSpread {
			nearInScore = true
		}
	}
	if !bucketSeen {
		d += newBucketBonus
	}
	if !nearInTime {
		d += timeSpreadBonus
	}
	if !nearInScore {
		d += scoreSpreadBonus
	}
	return d
}

func (r *Recommender) maxDiversity(candidates []candidate, n int) []candidate {
	if len(candidates) == 0 {
		return nil
	}
	var buckets [3][]candidate
	for _, c := range candidates {
		b := c.photo.Bucket()
		buckets[b] = append(buckets[b], c)
	}

	total := len(candidates)
	var picked, leftovers []candidate
	for b := range buckets {
		sortByScore(buckets[b])
		avail := len(buckets[b])
		proportional := int(math.Round(float64(n) * float64(avail) / float64(total)))
		limit := int(math.Floor(float64(n)*r.quota[b] + 1e-9))
		target := min(proportional, limit, avail)
		picked = append(picked, buckets[b][:target]...)
		leftovers = append(leftovers, buckets[b][target:]...)
	}
	if len(picked) > n {
		sortByScore(picked)
		picked = picked[:n]
	}

	sortByScore(leftovers)
	for _, c := range leftovers {
		if len(picked) >= n {
			break
		}
		picked = append(picked, c)
	}
	sortByScore(picked)
	return picked
}

// sortByScore orders by smart score descending, ties by input order.
func sortByScore(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].score != cs[j].score {
			return cs[i].score > cs[j].score
		}
		return cs[i].order < cs[j].order
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

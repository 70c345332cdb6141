// Package faceranking compares the faces of each person across the photos
// of a moment and decides which faces are worth replacing.
package faceranking

import (
	"sort"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

// DefaultReplaceThreshold is the minimum best-minus-worst gain that makes a swap worthwhile.
const DefaultReplaceThreshold = 0.2

type Ranker struct {
	replaceThreshold float64
}

// New creates a ranker. A non-positive threshold selects DefaultReplaceThreshold.
func New(replaceThreshold float64) *Ranker {
	if replaceThreshold <= 0 {
		replaceThreshold = DefaultReplaceThreshold
	}
	return &Ranker{replaceThreshold: replaceThreshold}
}

// Rank analyses every person of a cluster. Persons without faces are skipped.
func (r *Ranker) Rank(byPerson map[string][]photo.FaceQualityData) map[string]photo.PersonFaceQualityAnalysis {
	out := make(map[string]photo.PersonFaceQualityAnalysis, len(byPerson))
	for personID, faces := range byPerson {
		if len(faces) == 0 {
			continue
		}
		out[personID] = r.analyse(personID, faces)
	}
	return out
}

func (r *Ranker) analyse(personID string, faces []photo.FaceQualityData) photo.PersonFaceQualityAnalysis {
	best, worst := faces[0], faces[0]
	for _, f := range faces[1:] {
		if f.QualityRank > best.QualityRank {
			best = f
		}
		if f.QualityRank < worst.QualityRank {
			worst = f
		}
	}

	potential := best.QualityRank - worst.QualityRank
	if potential < 0 {
		potential = 0
	}

	var fixed []photo.FaceIssue
	for _, issue := range worst.Issues {
		if !best.HasIssue(issue) {
			fixed = append(fixed, issue)
		}
	}

	return photo.PersonFaceQualityAnalysis{
		PersonID:             personID,
		Faces:                append([]photo.FaceQualityData(nil), faces...),
		Best:                 best,
		Worst:                worst,
		ImprovementPotential: potential,
		ShouldReplace:        potential > r.replaceThreshold && worst.HasFixableIssue(),
		IssuesFixed:          fixed,
	}
}

// GroupByPerson buckets faces by person id. Faces without identity are dropped
// since they cannot be matched across photos.
func GroupByPerson(faces []photo.FaceQualityData) map[string][]photo.FaceQualityData {
	out := make(map[string][]photo.FaceQualityData)
	for _, f := range faces {
		if f.PersonID == "" {
			continue
		}
		out[f.PersonID] = append(out[f.PersonID], f)
	}
	return out
}

// Replaceable returns the analyses flagged for replacement, ordered by person id.
func Replaceable(analyses map[string]photo.PersonFaceQualityAnalysis) []photo.PersonFaceQualityAnalysis {
	var out []photo.PersonFaceQualityAnalysis
	for _, a := range analyses {
		if a.ShouldReplace {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out
}

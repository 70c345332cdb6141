package composer

import (
	"math"

	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

const neutralScore = 0.5

// replacement is one accepted face swap onto the base photo.
type replacement struct {
	personID    string
	dest        photo.FaceQualityData
	donor       photo.FaceQualityData
	improvement photo.ImprovementType
	angleFit    float64
	confidence  float64
}

// BaseScore rates a photo as a backdrop: face suitability weighs half,
// aesthetic and technical quality a quarter each.
func BaseScore(p photo.Photo, faces []photo.FaceQualityData) float64 {
	suitability := neutralScore
	var sum float64
	var n int
	for _, f := range faces {
		if f.PhotoID == p.ID {
			sum += f.QualityRank
			n++
		}
	}
	if n > 0 {
		suitability = sum / float64(n)
	}
	technical := neutralScore
	if p.Technical != nil {
		technical = p.Technical.Overall
	}
	return 0.5*suitability + 0.25*storedQuality(p) + 0.25*technical
}

// selectBase returns the best backdrop, the earliest photo on ties.
func (c *Composer) selectBase(photos []photo.Photo, faces []photo.FaceQualityData) photo.Photo {
	best := photos[0]
	bestScore := BaseScore(best, faces)
	for _, p := range photos[1:] {
		if s := BaseScore(p, faces); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}

func storedQuality(p photo.Photo) float64 {
	if p.Score == nil {
		return neutralScore
	}
	return p.Score.Overall
}

// planReplacements pairs every replaceable person's face on the base photo
// with their best face elsewhere. Donors with an incompatible head pose are skipped.
func (c *Composer) planReplacements(base photo.Photo, analyses []photo.PersonFaceQualityAnalysis) []replacement {
	var plan []replacement
	for _, a := range analyses {
		dest, ok := a.FaceIn(base.ID)
		if !ok {
			continue
		}
		donor := a.Best
		if donor.PhotoID == base.ID || donor.QualityRank <= dest.QualityRank {
			continue
		}
		fit, ok := c.angleFit(donor.Angle, dest.Angle)
		if !ok {
			c.log.Debug("skipping donor with incompatible pose", "person", a.PersonID,
				"donor", donor.PhotoID, "base", base.ID)
			continue
		}
		plan = append(plan, replacement{
			personID:    a.PersonID,
			dest:        dest,
			donor:       donor,
			improvement: improvementType(dest, donor),
			angleFit:    fit,
			confidence:  scoring.Clamp01(donor.QualityRank * (0.7 + 0.3*fit)),
		})
	}
	return plan
}

// angleFit returns 1 for identical poses falling to 0 at the tolerance edge,
// and false when any axis is outside the tolerance band.
func (c *Composer) angleFit(donor, dest photo.FaceAngle) (float64, bool) {
	tol := c.cfg.AngleTolerance
	deviation := 0.0
	for _, axis := range [][3]float64{
		{donor.Pitch, dest.Pitch, tol.Pitch},
		{donor.Yaw, dest.Yaw, tol.Yaw},
		{donor.Roll, dest.Roll, tol.Roll},
	} {
		diff := math.Abs(axis[0] - axis[1])
		if diff > axis[2] {
			return 0, false
		}
		if axis[2] > 0 {
			deviation = math.Max(deviation, diff/axis[2])
		}
	}
	return 1 - deviation, true
}

// improvementType names the first fixable issue of dest that donor does not share.
func improvementType(dest, donor photo.FaceQualityData) photo.ImprovementType {
	for _, issue := range photo.AllFaceIssues {
		if issue.Fixable() && dest.HasIssue(issue) && !donor.HasIssue(issue) {
			return photo.ImprovementFor(issue)
		}
	}
	return photo.ImprovementOverallQuality
}

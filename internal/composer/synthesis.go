package composer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

const (
	// faceMargin grows the face box so hairline and chin are carried over
	faceMargin = 0.15
	// feather is the share of the ellipse radius that fades out
	feather = 0.25
)

// OverallQuality combines the composite metrics; edge artifacts count inversely.
func OverallQuality(m photo.CompositeQualityMetrics) float64 {
	return scoring.Clamp01(0.30*m.BlendingQuality + 0.25*m.LightingConsistency +
		0.25*m.Naturalness + 0.20*(1-m.EdgeArtifacts))
}

// NeedsQualityWarning reports whether a composite falls below the quality floor.
func NeedsQualityWarning(m photo.CompositeQualityMetrics, floor float64) bool {
	return m.OverallQuality < floor
}

func (c *Composer) synthesize(ctx context.Context, cluster photo.PhotoCluster, base photo.Photo, plan []replacement) (*photo.PerfectMomentResult, error) {
	baseImg, err := c.loader.LoadImage(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("load base photo %s: %w", base.ID, err)
	}
	reference := imaging.Clone(baseImg)
	canvas := imaging.Clone(reference)

	donors := make(map[string]image.Image)
	var metrics photo.CompositeQualityMetrics
	var improvements []photo.PersonImprovement
	var donorIDs []string

	for _, r := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		donorImg, ok := donors[r.donor.PhotoID]
		if !ok {
			p, found := cluster.Photo(r.donor.PhotoID)
			if !found {
				return nil, fmt.Errorf("donor photo %s is not part of cluster %s", r.donor.PhotoID, cluster.ID)
			}
			donorImg, err = c.loader.LoadImage(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("load donor photo %s: %w", r.donor.PhotoID, err)
			}
			donors[r.donor.PhotoID] = donorImg
			donorIDs = append(donorIDs, r.donor.PhotoID)
		}

		m, err := pasteFace(canvas, reference, donorImg, r.dest.Box, r.donor.Box)
		if err != nil {
			c.log.Warn("face paste failed", "person", r.personID, "error", err)
			continue
		}
		m.Naturalness = scoring.Clamp01(0.6*r.donor.QualityRank + 0.4*r.angleFit)
		metrics.BlendingQuality += m.BlendingQuality
		metrics.LightingConsistency += m.LightingConsistency
		metrics.Naturalness += m.Naturalness
		metrics.EdgeArtifacts += m.EdgeArtifacts

		improvements = append(improvements, photo.PersonImprovement{
			PersonID:      r.personID,
			SourcePhotoID: r.donor.PhotoID,
			Type:          r.improvement,
			Confidence:    r.confidence,
		})
	}
	if len(improvements) == 0 {
		return nil, fmt.Errorf("no face could be transferred onto photo %s", base.ID)
	}

	n := float64(len(improvements))
	metrics.BlendingQuality /= n
	metrics.LightingConsistency /= n
	metrics.Naturalness /= n
	metrics.EdgeArtifacts /= n
	metrics.OverallQuality = OverallQuality(metrics)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(constants.CompositeJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}

	id := uuid.NewString()
	origin := photo.CompositeOrigin{
		ResultID:      id,
		ClusterID:     cluster.ID,
		BasePhotoID:   base.ID,
		DonorPhotoIDs: donorIDs,
		TakenAt:       base.TakenAt,
		CreatedAt:     c.now(),
	}
	data, err := photo.EmbedOrigin(buf.Bytes(), origin)
	if err != nil {
		return nil, fmt.Errorf("mark composite: %w", err)
	}
	return &photo.PerfectMomentResult{
		ID:           id,
		Original:     base,
		Image:        data,
		ContentType:  "image/jpeg",
		Improvements: improvements,
		Metrics:      metrics,
		Origin:       origin,
	}, nil
}

// pasteFace blends the donor face into canvas over the destination face and
// measures the seam. Boxes are normalised to the respective image sizes.
func pasteFace(canvas, reference *image.NRGBA, donorImg image.Image, destBox, donorBox photo.BoundingBox) (photo.CompositeQualityMetrics, error) {
	var m photo.CompositeQualityMetrics
	dstRect := boxRect(destBox, canvas.Bounds())
	srcRect := boxRect(donorBox, donorImg.Bounds())
	if dstRect.Dx() < 2 || dstRect.Dy() < 2 || srcRect.Dx() < 2 || srcRect.Dy() < 2 {
		return m, fmt.Errorf("face box too small (dest %v, donor %v)", dstRect, srcRect)
	}

	patch := imaging.Resize(imaging.Crop(donorImg, srcRect), dstRect.Dx(), dstRect.Dy(), imaging.Lanczos)
	region := imaging.Crop(reference, dstRect)

	patchMean, patchStd := lumaStats(patch)
	regionMean, regionStd := lumaStats(region)
	m.LightingConsistency = scoring.Clamp01(1 - math.Abs(patchMean-regionMean)/128)
	m.BlendingQuality = scoring.Clamp01(1 - math.Abs(patchStd-regionStd)/math.Max(1, math.Max(patchStd, regionStd)))

	if shift := (regionMean - patchMean) / 255 * 100; math.Abs(shift) > 0.5 {
		patch = imaging.AdjustBrightness(patch, shift)
	}

	mask := ellipseMask(dstRect.Dx(), dstRect.Dy())
	xdraw.DrawMask(canvas, dstRect, patch, image.Point{}, mask, image.Point{}, xdraw.Over)

	m.EdgeArtifacts = seamError(canvas, reference, dstRect)
	return m, nil
}

// boxRect converts a normalised box to pixels, grown by faceMargin and
// clipped to bounds.
func boxRect(b photo.BoundingBox, bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	mx, my := b.W*faceMargin, b.H*faceMargin
	r := image.Rect(
		bounds.Min.X+int((b.X-mx)*w),
		bounds.Min.Y+int((b.Y-my)*h),
		bounds.Min.X+int(math.Ceil((b.X+b.W+mx)*w)),
		bounds.Min.Y+int(math.Ceil((b.Y+b.H+my)*h)),
	)
	return r.Intersect(bounds)
}

// ellipseMask is opaque in the centre and fades to transparent at the rim.
func ellipseMask(w, h int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / cx
			dy := (float64(y) + 0.5 - cy) / cy
			r := math.Sqrt(dx*dx + dy*dy)
			a := scoring.Clamp01((1 - r) / feather)
			mask.SetAlpha(x, y, color.Alpha{A: uint8(a * 255)})
		}
	}
	return mask
}

// seamError compares the luminance step across the ellipse rim before and
// after the paste; 0 means no visible seam was introduced.
func seamError(canvas, reference *image.NRGBA, r image.Rectangle) float64 {
	const samples = 64
	cx := float64(r.Min.X) + float64(r.Dx())/2
	cy := float64(r.Min.Y) + float64(r.Dy())/2
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2

	var total float64
	for i := 0; i < samples; i++ {
		theta := 2 * math.Pi * float64(i) / samples
		inner := image.Pt(int(cx+0.7*rx*math.Cos(theta)), int(cy+0.7*ry*math.Sin(theta)))
		outer := image.Pt(int(cx+0.98*rx*math.Cos(theta)), int(cy+0.98*ry*math.Sin(theta)))
		after := luma(canvas.At(inner.X, inner.Y)) - luma(canvas.At(outer.X, outer.Y))
		before := luma(reference.At(inner.X, inner.Y)) - luma(reference.At(outer.X, outer.Y))
		total += math.Abs(after - before)
	}
	return scoring.Clamp01(total / samples / 128)
}

func lumaStats(img *image.NRGBA) (mean, std float64) {
	n := 0
	var sum, sumSq float64
	for i := 0; i+3 < len(img.Pix); i += 4 {
		l := 0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
		sum += l
		sumSq += l * l
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)
	return mean, math.Sqrt(math.Max(0, sumSq/float64(n)-mean*mean))
}

func luma(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
}

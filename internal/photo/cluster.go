package photo

import "time"

// SelectionMode is the state of a cluster's representative selection.
type SelectionMode string

const (
	// ModeAutomatic recomputes the representative from scores.
	ModeAutomatic SelectionMode = "automatic"
	// ModeManualOverride keeps a user-pinned representative.
	ModeManualOverride SelectionMode = "manual_override"
)

// SelectionReason explains why a representative was chosen.
type SelectionReason string

const (
	ReasonOnlyOptionAvailable     SelectionReason = "only_option_available"
	ReasonBestFacialQuality       SelectionReason = "best_facial_quality"
	ReasonHighestOverallQuality   SelectionReason = "highest_overall_quality"
	ReasonBalancedQualityAndFaces SelectionReason = "balanced_quality_and_faces"
	ReasonFallbackSelection       SelectionReason = "fallback_selection"
	ReasonManualOverride          SelectionReason = "manual_override"
)

// Selection is the cluster-level selection state owned by the curator.
type Selection struct {
	Mode          SelectionMode   `json:"mode"`
	PinnedPhotoID string          `json:"pinned_photo_id,omitempty"`
	PhotoID       string          `json:"photo_id,omitempty"`
	Reason        SelectionReason `json:"reason,omitempty"`
}

// PhotoCluster is a moment: a non-empty, chronologically ordered run of photos.
type PhotoCluster struct {
	ID        string    `json:"id"`
	Photos    []Photo   `json:"photos"`
	Selection Selection `json:"selection"`
}

// Size returns the number of photos in the cluster.
func (c PhotoCluster) Size() int {
	return len(c.Photos)
}

// TimeRange returns the earliest and latest capture time in the cluster.
func (c PhotoCluster) TimeRange() (time.Time, time.Time) {
	if len(c.Photos) == 0 {
		return time.Time{}, time.Time{}
	}
	start, end := c.Photos[0].TakenAt, c.Photos[0].TakenAt
	for _, p := range c.Photos[1:] {
		if p.TakenAt.Before(start) {
			start = p.TakenAt
		}
		if p.TakenAt.After(end) {
			end = p.TakenAt
		}
	}
	return start, end
}

// Photo returns the member photo with the given id.
func (c PhotoCluster) Photo(id string) (Photo, bool) {
	for _, p := range c.Photos {
		if p.ID == id {
			return p, true
		}
	}
	return Photo{}, false
}

// Contains reports whether the photo id is a member of the cluster.
func (c PhotoCluster) Contains(id string) bool {
	_, ok := c.Photo(id)
	return ok
}

// ClusterRepresentative is the curator's pick for one cluster.
type ClusterRepresentative struct {
	ClusterID            string          `json:"cluster_id"`
	Photo                Photo           `json:"photo"`
	QualityScore         float64         `json:"quality_score"`
	FacialQualityScore   float64         `json:"facial_quality_score"`
	CombinedQualityScore float64         `json:"combined_quality_score"`
	RankingConfidence    float64         `json:"ranking_confidence"`
	Reason               SelectionReason `json:"reason"`
	Mode                 SelectionMode   `json:"mode"`
	IsImportantMoment    bool            `json:"is_important_moment"`
}

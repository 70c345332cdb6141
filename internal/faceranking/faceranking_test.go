package faceranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

func face(photoID, person string, rank float64, issues ...photo.FaceIssue) photo.FaceQualityData {
	return photo.FaceQualityData{PhotoID: photoID, PersonID: person, QualityRank: rank, Issues: issues}
}

func TestRank_EyesClosedReplaced(t *testing.T) {
	r := New(0)
	got := r.Rank(map[string][]photo.FaceQualityData{
		"A": {
			face("p1", "A", 0.9),
			face("p2", "A", 0.5, photo.IssueEyesClosed),
			face("p3", "A", 0.7),
		},
	})

	a := got["A"]
	assert.Equal(t, "p1", a.Best.PhotoID)
	assert.Equal(t, "p2", a.Worst.PhotoID)
	assert.InDelta(t, 0.4, a.ImprovementPotential, 1e-9)
	assert.True(t, a.ShouldReplace)
	assert.Equal(t, []photo.FaceIssue{photo.IssueEyesClosed}, a.IssuesFixed)
	assert.Len(t, a.Faces, 3)
}

func TestRank_ShouldReplace(t *testing.T) {
	tests := []struct {
		name  string
		faces []photo.FaceQualityData
		want  bool
	}{
		{
			name:  "gain below threshold",
			faces: []photo.FaceQualityData{face("p1", "A", 0.7), face("p2", "A", 0.55, photo.IssueEyesClosed)},
			want:  false,
		},
		{
			name:  "gain exactly at threshold",
			faces: []photo.FaceQualityData{face("p1", "A", 0.7), face("p2", "A", 0.5, photo.IssueEyesClosed)},
			want:  false,
		},
		{
			name:  "only unfixable issues",
			faces: []photo.FaceQualityData{face("p1", "A", 0.9), face("p2", "A", 0.3, photo.IssueMotionBlur, photo.IssueBlurry)},
			want:  false,
		},
		{
			name:  "bad angle is fixable",
			faces: []photo.FaceQualityData{face("p1", "A", 0.9), face("p2", "A", 0.3, photo.IssueBadAngle)},
			want:  true,
		},
		{
			name:  "single face",
			faces: []photo.FaceQualityData{face("p1", "A", 0.2, photo.IssueEyesClosed)},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(DefaultReplaceThreshold).Rank(map[string][]photo.FaceQualityData{"A": tt.faces})
			assert.Equal(t, tt.want, got["A"].ShouldReplace)
			assert.GreaterOrEqual(t, got["A"].ImprovementPotential, 0.0)
		})
	}
}

func TestRank_IssuesFixedExcludesSharedIssues(t *testing.T) {
	got := New(0).Rank(map[string][]photo.FaceQualityData{
		"A": {
			face("p1", "A", 0.8, photo.IssuePoorLighting),
			face("p2", "A", 0.3, photo.IssuePoorExpression, photo.IssuePoorLighting),
		},
	})
	assert.Equal(t, []photo.FaceIssue{photo.IssuePoorExpression}, got["A"].IssuesFixed)
}

func TestRank_TiesPickFirst(t *testing.T) {
	got := New(0).Rank(map[string][]photo.FaceQualityData{
		"A": {face("p1", "A", 0.6), face("p2", "A", 0.6)},
	})
	assert.Equal(t, "p1", got["A"].Best.PhotoID)
	assert.Equal(t, "p1", got["A"].Worst.PhotoID)
	assert.Zero(t, got["A"].ImprovementPotential)
}

func TestRank_SkipsEmptyPersons(t *testing.T) {
	got := New(0).Rank(map[string][]photo.FaceQualityData{"A": nil})
	assert.Empty(t, got)
}

func TestGroupByPerson(t *testing.T) {
	groups := GroupByPerson([]photo.FaceQualityData{
		face("p1", "A", 0.5),
		face("p1", "", 0.5),
		face("p2", "A", 0.4),
		face("p2", "B", 0.9),
	})
	require.Len(t, groups, 2)
	assert.Len(t, groups["A"], 2)
	assert.Len(t, groups["B"], 1)
}

func TestReplaceable_SortedByPerson(t *testing.T) {
	analyses := New(0).Rank(map[string][]photo.FaceQualityData{
		"zoe":  {face("p1", "zoe", 0.9), face("p2", "zoe", 0.2, photo.IssueEyesClosed)},
		"adam": {face("p1", "adam", 0.9), face("p2", "adam", 0.2, photo.IssuePoorExpression)},
		"ben":  {face("p1", "ben", 0.9), face("p2", "ben", 0.8)},
	})
	got := Replaceable(analyses)
	require.Len(t, got, 2)
	assert.Equal(t, "adam", got[0].PersonID)
	assert.Equal(t, "zoe", got[1].PersonID)
}

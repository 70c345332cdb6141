package handlers

import (
	"context"
	"time"

	"github.com/kozaktomas/photo-moments/internal/composer"
	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/progress"
	"github.com/kozaktomas/photo-moments/internal/recommend"
)

// Curator is the control surface served by the API. *curator.Service implements it.
type Curator interface {
	Run(ctx context.Context, source curator.PhotoSource, fn progress.Func) (*curator.Result, error)
	LoadOrRecluster(ctx context.Context, source curator.PhotoSource, fn progress.Func) (*curator.Result, bool, error)

	Clusters() ([]photo.PhotoCluster, []photo.ClusterRepresentative)
	Cluster(id string) (photo.PhotoCluster, photo.ClusterRepresentative, error)
	ImportantMoments() []photo.ClusterRepresentative
	AnalyzedAt() time.Time
	HasEverAnalyzed(ctx context.Context) (bool, error)

	RecomputeRepresentative(ctx context.Context, clusterID string) (photo.ClusterRepresentative, error)
	SetManualRepresentative(ctx context.Context, clusterID, photoID string) (photo.ClusterRepresentative, error)
	ResetToAutomatic(ctx context.Context, clusterID string) (photo.ClusterRepresentative, error)

	ComposePerfectMoment(ctx context.Context, clusterID string) (*composer.Outcome, error)
	FaceAnalysis(ctx context.Context, clusterID string) (map[string]photo.PersonFaceQualityAnalysis, []composer.AnalysisFailure, error)
	Recommendations(count int, policy recommend.Policy) []photo.Photo
}

var _ Curator = (*curator.Service)(nil)

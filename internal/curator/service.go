package curator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-moments/internal/clustering"
	"github.com/kozaktomas/photo-moments/internal/composer"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/faceranking"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/progress"
	"github.com/kozaktomas/photo-moments/internal/recommend"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

var (
	ErrClusterNotFound     = errors.New("cluster not found")
	ErrPhotoNotInCluster   = errors.New("photo is not a member of the cluster")
	ErrComposerUnavailable = errors.New("perfect moment composer is not configured")
	// ErrNotSaved wraps a store failure after a change was applied in memory.
	// The returned value is still valid.
	ErrNotSaved = errors.New("change applied but not saved")
)

// PhotoSource discovers the photos of a library.
type PhotoSource interface {
	Photos(ctx context.Context, onProgress func(done, total int)) ([]photo.Photo, error)
}

// Options wires the collaborators of a Service. Store and Clusterer are
// required; Composer may be nil when no face analysis backend is available.
type Options struct {
	Store     database.ClusterStore
	Clusterer *clustering.Clusterer
	Composer  *composer.Composer
	Curation  config.CurationConfig
	Log       *logger.Logger
}

// Result describes one analysis run.
type Result struct {
	Clusters        []photo.PhotoCluster          `json:"clusters"`
	Representatives []photo.ClusterRepresentative `json:"representatives"`
	// Scores holds the smart score of every clustered photo.
	Scores      map[string]float64 `json:"scores"`
	Screenshots int                `json:"screenshots"`
	Unscored    int                `json:"unscored"`
	// PersistError is set when the clusters could not be saved. The
	// in-memory result stays valid.
	PersistError error         `json:"-"`
	Duration     time.Duration `json:"duration"`
}

// Service is the single writer of cluster selection state. It keeps the
// current clusters in memory and mirrors them to the ClusterStore.
type Service struct {
	store       database.ClusterStore
	clusterer   *clustering.Clusterer
	composer    *composer.Composer
	selector    *Selector
	ranker      *faceranking.Ranker
	recommender *recommend.Recommender
	scorer      *scoring.Scorer
	staleness   time.Duration
	log         *logger.Logger
	now         func() time.Time

	// runMu serialises analysis runs; mu guards the state below
	runMu      sync.Mutex
	mu         sync.RWMutex
	clusters   []photo.PhotoCluster
	sourceIDs  []string
	analyzedAt time.Time
	analyzed   bool
}

func NewService(opts Options) *Service {
	scorer := scoring.New(opts.Curation.Scoring)
	staleness := opts.Curation.Curator.Staleness
	if staleness <= 0 {
		staleness = 7 * 24 * time.Hour
	}
	return &Service{
		store:       opts.Store,
		clusterer:   opts.Clusterer,
		composer:    opts.Composer,
		selector:    NewSelector(scorer, opts.Curation.Curator),
		ranker:      faceranking.New(opts.Curation.Faces.ReplaceThreshold),
		recommender: recommend.New(scorer, opts.Curation.Recommend),
		scorer:      scorer,
		staleness:   staleness,
		log:         logger.OrNop(opts.Log),
		now:         time.Now,
	}
}

// Run discovers photos from source and reclusters them, reporting progress
// over all five pipeline phases.
func (s *Service) Run(ctx context.Context, source PhotoSource, fn progress.Func) (*Result, error) {
	tracker := progress.NewTracker(fn, progress.AnalysisPipeline...)
	photos, err := source.Photos(ctx, tracker.Reporter(progress.Discovery))
	if err != nil {
		return nil, fmt.Errorf("discover photos: %w", err)
	}
	tracker.Complete(progress.Discovery)
	return s.recluster(ctx, photos, tracker)
}

// Recluster replaces the current clusters with a fresh analysis of photos.
// Manual pins survive when their photo ends up in a new cluster.
func (s *Service) Recluster(ctx context.Context, photos []photo.Photo, fn progress.Func) (*Result, error) {
	tracker := progress.NewTracker(fn, progress.Clustering, progress.QualityAnalysis, progress.Ranking, progress.Persistence)
	return s.recluster(ctx, photos, tracker)
}

// LoadOrRecluster reuses the stored clusters when they were computed from the
// same photos within the staleness window, and reclusters otherwise. The
// boolean reports whether a new analysis was run.
func (s *Service) LoadOrRecluster(ctx context.Context, source PhotoSource, fn progress.Func) (*Result, bool, error) {
	tracker := progress.NewTracker(fn, progress.AnalysisPipeline...)
	photos, err := source.Photos(ctx, tracker.Reporter(progress.Discovery))
	if err != nil {
		return nil, false, fmt.Errorf("discover photos: %w", err)
	}
	tracker.Complete(progress.Discovery)

	snap, err := s.store.LoadClusters(ctx)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.log.Info("no stored clusters, analyzing")
	case err != nil:
		s.log.Warn("failed to load stored clusters, analyzing", "error", err)
	case !snap.SameSource(database.SourceIDs(photos)):
		s.log.Info("photo library changed since last analysis", "stored", len(snap.SourcePhotoIDs), "current", len(photos))
	case s.now().Sub(snap.AnalyzedAt) > s.staleness:
		s.log.Info("stored clusters are stale", "analyzed_at", snap.AnalyzedAt)
	default:
		result := s.restore(snap)
		tracker.Complete(progress.Persistence)
		return result, false, nil
	}

	result, err := s.recluster(ctx, photos, tracker)
	return result, true, err
}

// Load restores the stored clusters without checking them against a library.
// It returns false when nothing was stored.
func (s *Service) Load(ctx context.Context) (bool, error) {
	snap, err := s.store.LoadClusters(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load clusters: %w", err)
	}
	s.restore(snap)
	return true, nil
}

func (s *Service) restore(snap *database.Snapshot) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	clusters := make([]photo.PhotoCluster, len(snap.Clusters))
	copy(clusters, snap.Clusters)
	result := &Result{Clusters: clusters, Scores: make(map[string]float64)}
	for i := range clusters {
		result.Representatives = append(result.Representatives, s.selector.Apply(&clusters[i]))
		for _, p := range clusters[i].Photos {
			result.Scores[p.ID] = s.scorer.SmartScore(p)
		}
	}
	s.clusters = clusters
	s.sourceIDs = snap.SourcePhotoIDs
	s.analyzedAt = snap.AnalyzedAt
	s.analyzed = snap.HasEverAnalyzed || len(clusters) > 0
	s.log.Info("restored clusters", "clusters", len(clusters), "analyzed_at", snap.AnalyzedAt)
	return result
}

func (s *Service) recluster(ctx context.Context, photos []photo.Photo, tracker *progress.Tracker) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := s.now()
	result := &Result{}

	eligible := make([]photo.Photo, 0, len(photos))
	for _, p := range photos {
		if p.Screenshot {
			result.Screenshots++
			continue
		}
		eligible = append(eligible, p)
	}

	clusters, err := s.clusterer.Cluster(ctx, eligible, tracker.Reporter(progress.Clustering))
	if err != nil {
		return nil, fmt.Errorf("cluster photos: %w", err)
	}
	tracker.Complete(progress.Clustering)

	scores, unscored, err := s.scoreAll(ctx, eligible, tracker)
	if err != nil {
		return nil, err
	}
	result.Scores = scores
	result.Unscored = unscored
	tracker.Complete(progress.QualityAnalysis)

	pinned := s.pinnedPhotos()
	for i := range clusters {
		carryPin(&clusters[i], pinned)
		result.Representatives = append(result.Representatives, s.selector.Apply(&clusters[i]))
		tracker.Update(progress.Ranking, i+1, len(clusters))
	}
	tracker.Complete(progress.Ranking)
	result.Clusters = clusters

	s.mu.Lock()
	s.clusters = clusters
	s.sourceIDs = database.SourceIDs(photos)
	s.analyzedAt = s.now()
	s.analyzed = true
	result.PersistError = s.persistLocked(ctx)
	s.mu.Unlock()
	tracker.Complete(progress.Persistence)

	result.Duration = s.now().Sub(start)
	s.log.Info("analysis finished", "photos", len(photos), "screenshots", result.Screenshots,
		"clusters", len(clusters), "unscored", unscored, "duration", result.Duration)
	return result, nil
}

// scoreAll computes smart scores in parallel. Photos the provider could not
// score are counted; their sub-scores default to neutral.
func (s *Service) scoreAll(ctx context.Context, photos []photo.Photo, tracker *progress.Tracker) (map[string]float64, int, error) {
	scores := make([]float64, len(photos))
	var done, unscored atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.DefaultConcurrency)
	for i := range photos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := photos[i]
			if p.Score == nil && p.Technical == nil {
				unscored.Add(1)
			}
			scores[i] = s.scorer.SmartScore(p)
			tracker.Update(progress.QualityAnalysis, int(done.Add(1)), len(photos))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("score photos: %w", err)
	}

	out := make(map[string]float64, len(photos))
	for i, p := range photos {
		out[p.ID] = scores[i]
	}
	return out, int(unscored.Load()), nil
}

// pinnedPhotos returns the manually pinned photo ids of the current clusters.
func (s *Service) pinnedPhotos() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pinned := make(map[string]bool)
	for _, c := range s.clusters {
		if c.Selection.Mode == photo.ModeManualOverride {
			pinned[c.Selection.PinnedPhotoID] = true
		}
	}
	return pinned
}

// carryPin moves an earlier manual pin onto the new cluster holding the
// pinned photo. The chronologically first pinned photo wins.
func carryPin(cluster *photo.PhotoCluster, pinned map[string]bool) {
	for _, p := range cluster.Photos {
		if pinned[p.ID] {
			cluster.Selection = photo.Selection{Mode: photo.ModeManualOverride, PinnedPhotoID: p.ID}
			return
		}
	}
}

// persistLocked saves the current state. Failures are logged and returned,
// the in-memory state stays authoritative. s.mu must be held.
func (s *Service) persistLocked(ctx context.Context) error {
	snap := database.Snapshot{
		Clusters:        s.clusters,
		SourcePhotoIDs:  s.sourceIDs,
		AnalyzedAt:      s.analyzedAt,
		HasEverAnalyzed: s.analyzed,
	}
	if err := s.store.SaveClusters(ctx, snap); err != nil {
		s.log.Error("failed to save clusters", "clusters", len(s.clusters), "error", err)
		return fmt.Errorf("save clusters: %w", err)
	}
	return nil
}

// Clusters returns a copy of the current clusters with their representatives.
func (s *Service) Clusters() ([]photo.PhotoCluster, []photo.ClusterRepresentative) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clusters := make([]photo.PhotoCluster, len(s.clusters))
	reps := make([]photo.ClusterRepresentative, len(s.clusters))
	for i, c := range s.clusters {
		clusters[i] = c
		reps[i] = s.selector.Representative(c)
	}
	return clusters, reps
}

// Cluster returns one cluster and its representative.
func (s *Service) Cluster(id string) (photo.PhotoCluster, photo.ClusterRepresentative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.indexLocked(id)
	if err != nil {
		return photo.PhotoCluster{}, photo.ClusterRepresentative{}, err
	}
	return s.clusters[i], s.selector.Representative(s.clusters[i]), nil
}

// AnalyzedAt returns when the current clusters were computed.
func (s *Service) AnalyzedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzedAt
}

func (s *Service) indexLocked(id string) (int, error) {
	for i := range s.clusters {
		if s.clusters[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
}

// RecomputeRepresentative re-runs the selection of one cluster. A manual pin
// is kept.
func (s *Service) RecomputeRepresentative(ctx context.Context, clusterID string) (photo.ClusterRepresentative, error) {
	return s.mutate(ctx, clusterID, func(*photo.PhotoCluster) error { return nil })
}

// SetManualRepresentative pins photoID as the representative of the cluster.
func (s *Service) SetManualRepresentative(ctx context.Context, clusterID, photoID string) (photo.ClusterRepresentative, error) {
	return s.mutate(ctx, clusterID, func(c *photo.PhotoCluster) error {
		if !c.Contains(photoID) {
			return fmt.Errorf("%w: photo %s, cluster %s", ErrPhotoNotInCluster, photoID, c.ID)
		}
		c.Selection = photo.Selection{Mode: photo.ModeManualOverride, PinnedPhotoID: photoID}
		return nil
	})
}

// ResetToAutomatic drops a manual pin and recomputes the representative.
func (s *Service) ResetToAutomatic(ctx context.Context, clusterID string) (photo.ClusterRepresentative, error) {
	return s.mutate(ctx, clusterID, func(c *photo.PhotoCluster) error {
		c.Selection = photo.Selection{Mode: photo.ModeAutomatic}
		return nil
	})
}

// mutate applies fn and the selection under the write lock, then persists.
// A failed save returns the new representative together with ErrNotSaved.
func (s *Service) mutate(ctx context.Context, clusterID string, fn func(*photo.PhotoCluster) error) (photo.ClusterRepresentative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(clusterID)
	if err != nil {
		return photo.ClusterRepresentative{}, err
	}
	cluster := s.clusters[i]
	cluster.Photos = append([]photo.Photo(nil), cluster.Photos...)
	if err := fn(&cluster); err != nil {
		return photo.ClusterRepresentative{}, err
	}
	rep := s.selector.Apply(&cluster)

	clusters := make([]photo.PhotoCluster, len(s.clusters))
	copy(clusters, s.clusters)
	clusters[i] = cluster
	s.clusters = clusters

	s.log.Debug("representative updated", "cluster", clusterID, "photo", rep.Photo.ID,
		"mode", string(rep.Mode), "reason", string(rep.Reason))
	if err := s.persistLocked(ctx); err != nil {
		return rep, fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return rep, nil
}

// ComposePerfectMoment builds a composite for the cluster. Selection state
// is not touched.
func (s *Service) ComposePerfectMoment(ctx context.Context, clusterID string) (*composer.Outcome, error) {
	if s.composer == nil {
		return nil, ErrComposerUnavailable
	}
	cluster, _, err := s.Cluster(clusterID)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(ctx, cluster)
}

// FaceAnalysis ranks the faces of every person in the cluster.
func (s *Service) FaceAnalysis(ctx context.Context, clusterID string) (map[string]photo.PersonFaceQualityAnalysis, []composer.AnalysisFailure, error) {
	if s.composer == nil {
		return nil, nil, ErrComposerUnavailable
	}
	cluster, _, err := s.Cluster(clusterID)
	if err != nil {
		return nil, nil, err
	}
	faces, failures, err := s.composer.CollectFaces(ctx, cluster.Photos)
	if err != nil {
		return nil, nil, err
	}
	return s.ranker.Rank(faceranking.GroupByPerson(faces)), failures, nil
}

// Recommendations picks up to count cluster winners under policy.
func (s *Service) Recommendations(count int, policy recommend.Policy) []photo.Photo {
	_, reps := s.Clusters()
	winners := make([]photo.Photo, 0, len(reps))
	for _, r := range reps {
		winners = append(winners, r.Photo)
	}
	return s.recommender.Recommend(winners, count, policy)
}

// HasEverAnalyzed reports whether an analysis completed in this process or
// was found in the store.
func (s *Service) HasEverAnalyzed(ctx context.Context) (bool, error) {
	s.mu.RLock()
	analyzed := s.analyzed
	s.mu.RUnlock()
	if analyzed {
		return true, nil
	}
	return s.store.HasEverAnalyzed(ctx)
}

// ImportantMoments returns the representatives of clusters large enough to be
// highlighted, largest first.
func (s *Service) ImportantMoments() []photo.ClusterRepresentative {
	clusters, reps := s.Clusters()
	var out []photo.ClusterRepresentative
	sizes := make(map[string]int, len(clusters))
	for i, r := range reps {
		if r.IsImportantMoment {
			out = append(out, r)
			sizes[r.ClusterID] = clusters[i].Size()
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sizes[out[i].ClusterID] > sizes[out[j].ClusterID]
	})
	return out
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/clustering"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/database/mock"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

var noon = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func shot(id string, sec int, technical float64) photo.Photo {
	return photo.Photo{
		ID:        id,
		TakenAt:   noon.Add(time.Duration(sec) * time.Second),
		Technical: &photo.TechnicalQuality{Overall: technical},
		Score:     &photo.OverallScore{Context: 0.5},
	}
}

// testLibrary is a three shot moment, a lone photo five minutes later and a screenshot.
func testLibrary() []photo.Photo {
	screenshot := shot("shot", 30, 0.9)
	screenshot.Screenshot = true
	return []photo.Photo{
		shot("a1", 0, 0.6),
		shot("a2", 5, 0.9),
		shot("a3", 10, 0.5),
		shot("b1", 300, 0.7),
		screenshot,
	}
}

type staticSource struct {
	photos []photo.Photo
}

func (s *staticSource) Photos(_ context.Context, onProgress func(done, total int)) ([]photo.Photo, error) {
	for i := range s.photos {
		onProgress(i+1, len(s.photos))
	}
	return s.photos, nil
}

// newTestCurator creates a service without composer over an in-memory store.
func newTestCurator(t *testing.T) (*curator.Service, *mock.MockClusterStore) {
	t.Helper()
	store := mock.NewMockClusterStore()
	cfg := config.DefaultCuration()
	svc := curator.NewService(curator.Options{
		Store:     store,
		Clusterer: clustering.New(nil, cfg.Clustering, nil),
		Curation:  cfg,
	})
	return svc, store
}

// analyzedCurator returns a service that already clustered testLibrary.
func analyzedCurator(t *testing.T) *curator.Service {
	t.Helper()
	svc, _ := newTestCurator(t)
	_, err := svc.Recluster(context.Background(), testLibrary(), nil)
	require.NoError(t, err)
	return svc
}

// clusterOf returns the id of the cluster holding photoID.
func clusterOf(t *testing.T, c Curator, photoID string) string {
	t.Helper()
	clusters, _ := c.Clusters()
	for _, cl := range clusters {
		if cl.Contains(photoID) {
			return cl.ID
		}
	}
	t.Fatalf("no cluster contains %s", photoID)
	return ""
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse decodes the recorded body into target
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), target), "body: %s", recorder.Body.String())
}

// errorMessage returns the "error" field of a JSON error response
func errorMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	return result["error"]
}

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

type fakeLister struct {
	photos []photo.Photo
	err    error
}

func (f *fakeLister) Photos(_ context.Context, onProgress func(done, total int)) ([]photo.Photo, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.photos {
		onProgress(i+1, len(f.photos))
	}
	return f.photos, nil
}

type fakePreparer struct {
	got []string
	err error
}

func (f *fakePreparer) Prepare(_ context.Context, photos []photo.Photo, _ int) error {
	for _, p := range photos {
		f.got = append(f.got, p.ID)
	}
	return f.err
}

func TestSource_Photos(t *testing.T) {
	vision := &fakeVision{results: map[string]*ai.PhotoAnalysis{
		"p1": {Technical: ai.TechnicalMeasurement{Sharpness: 0.8, Exposure: 0.8, Composition: 0.8}},
		"p2": {Technical: ai.TechnicalMeasurement{Sharpness: 0.6, Exposure: 0.6, Composition: 0.6}},
	}}
	pr, _ := newProvider(t, vision, nil)
	preparer := &fakePreparer{err: errors.New("embedding server down")}
	src := NewSource(&fakeLister{photos: []photo.Photo{{ID: "p1"}, {ID: "p2"}}}, pr, preparer, 1, nil)

	assert.Nil(t, src.LastReport())

	var reports [][2]int
	photos, err := src.Photos(context.Background(), func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})
	require.NoError(t, err, "a failing preparer is not fatal")

	require.Len(t, photos, 2)
	assert.InDelta(t, 0.8, photos[0].Technical.Overall, 1e-9)
	assert.InDelta(t, 0.6, photos[1].Technical.Overall, 1e-9)
	assert.Equal(t, []string{"p1", "p2"}, preparer.got)
	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, reports)

	require.NotNil(t, src.LastReport())
	assert.Equal(t, 2, src.LastReport().Analyzed)
}

func TestSource_Empty(t *testing.T) {
	pr, _ := newProvider(t, &fakeVision{}, nil)
	src := NewSource(&fakeLister{}, pr, nil, 1, nil)

	var reports [][2]int
	photos, err := src.Photos(context.Background(), func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Empty(t, photos)
	assert.Equal(t, [][2]int{{1, 1}}, reports)
}

func TestSource_ListError(t *testing.T) {
	pr, _ := newProvider(t, &fakeVision{}, nil)
	src := NewSource(&fakeLister{err: errors.New("album gone")}, pr, nil, 1, nil)

	_, err := src.Photos(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "album gone")
}

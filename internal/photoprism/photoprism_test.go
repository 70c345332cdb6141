package photoprism

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionJSON = `{
	"id": "sess1",
	"access_token": "tok-123",
	"config": {"downloadToken": "dl-456", "previewToken": "pv-789"},
	"user": {"UID": "us123", "Name": "admin"}
}`

const detailsJSON = `{
	"UID": "ph1",
	"Type": "image",
	"Files": [
		{"UID": "f-sidecar", "Hash": "hash-sidecar", "Primary": false, "Markers": []},
		{"UID": "f1", "Hash": "hash-primary", "Primary": true, "Width": 4000, "Height": 3000, "Markers": [
			{"UID": "m1", "Type": "face", "Name": "Jan Novák", "SubjUID": "js1", "X": 0.1, "Y": 0.2, "W": 0.1, "H": 0.15},
			{"UID": "m2", "Type": "face", "Name": "", "X": 0.5, "Y": 0.2, "W": 0.1, "H": 0.15},
			{"UID": "m3", "Type": "face", "Name": "Gone", "Invalid": true},
			{"UID": "m4", "Type": "label", "Name": "cat"}
		]}
	]
}`

type fakeServer struct {
	mu       sync.Mutex
	photos   int
	uploads  []string
	albums   [][]string
	sawToken []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(sessionJSON))
	})
	mux.HandleFunc("DELETE /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/v1/albums/{uid}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("uid") != "al1" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"UID":"al1","Title":"Holiday","PhotoCount":5}`))
	})
	mux.HandleFunc("GET /api/v1/photos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.sawToken = append(f.sawToken, r.Header.Get("Authorization"))
		f.mu.Unlock()
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.Equal(t, "oldest", r.URL.Query().Get("order"))
		var page []Photo
		for i := offset; i < min(offset+count, f.photos); i++ {
			page = append(page, Photo{UID: fmt.Sprintf("ph%d", i), TakenAt: "2024-06-01T10:00:00Z"})
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("GET /api/v1/photos/{uid}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailsJSON))
	})
	mux.HandleFunc("GET /api/v1/dl/{hash}", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "dl-456" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg:" + r.PathValue("hash")))
	})
	mux.HandleFunc("POST /api/v1/users/us123/upload/{token}", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.uploads = append(f.uploads, header.Filename+"="+string(data))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("PUT /api/v1/users/us123/upload/{token}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Albums []string `json:"albums"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.albums = append(f.albums, body.Albums)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func setup(t *testing.T, photos int) (*PhotoPrism, *fakeServer) {
	t.Helper()
	fake := &fakeServer{photos: photos}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	pp, err := NewPhotoPrism(context.Background(), srv.URL, "admin", "secret")
	require.NoError(t, err)
	return pp, fake
}

func TestAuth(t *testing.T) {
	pp, _ := setup(t, 0)
	assert.Equal(t, "tok-123", pp.token)
	assert.Equal(t, "dl-456", pp.downloadToken)
	assert.Equal(t, "us123", pp.userUID)

	require.NoError(t, pp.Logout(context.Background()))
	assert.Empty(t, pp.token)
	assert.NoError(t, pp.Logout(context.Background()))
}

func TestAuth_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer((&fakeServer{}).handler(t))
	defer srv.Close()

	_, err := NewPhotoPrism(context.Background(), srv.URL, "admin", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestResolveURL(t *testing.T) {
	pp, err := NewPhotoPrismFromToken("http://localhost:2342/", "t", "d")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:2342/api/v1", pp.Url)
	assert.Equal(t, "http://localhost:2342/api/v1/photos/ph1", pp.resolveURL("photos/ph1"))
	assert.Equal(t, "http://localhost:2342/api/v1/photos?count=10&offset=0", pp.resolveURL("photos?count=10&offset=0"))
}

func TestGetAlbum(t *testing.T) {
	pp, _ := setup(t, 0)

	album, err := pp.GetAlbum(context.Background(), "al1")
	require.NoError(t, err)
	assert.Equal(t, "Holiday", album.Title)

	_, err = pp.GetAlbum(context.Background(), "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestAllPhotos_Pages(t *testing.T) {
	pp, fake := setup(t, 7)

	var progress []int
	photos, err := pp.AllPhotos(context.Background(), "", "al1", 3, func(n int) { progress = append(progress, n) })
	require.NoError(t, err)
	assert.Len(t, photos, 7)
	assert.Equal(t, "ph6", photos[6].UID)
	assert.Equal(t, []int{3, 6, 7}, progress)
	assert.Equal(t, "Bearer tok-123", fake.sawToken[0])
}

func TestAllPhotos_ExactPageMultiple(t *testing.T) {
	pp, _ := setup(t, 6)
	photos, err := pp.AllPhotos(context.Background(), "year:2024", "", 3, nil)
	require.NoError(t, err)
	assert.Len(t, photos, 6)
}

func TestGetPhotoMarkers(t *testing.T) {
	pp, _ := setup(t, 0)

	markers, err := pp.GetPhotoMarkers(context.Background(), "ph1")
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, "Jan Novák", markers[0].Name)
	assert.Equal(t, 0.15, markers[0].H)
	assert.Equal(t, "m2", markers[1].UID)
}

func TestGetPhotoDownload_UsesPrimaryFile(t *testing.T) {
	pp, _ := setup(t, 0)

	data, contentType, err := pp.GetPhotoDownload(context.Background(), "ph1")
	require.NoError(t, err)
	assert.Equal(t, "jpeg:hash-primary", string(data))
	assert.Equal(t, "image/jpeg", contentType)
}

func TestPrimaryFile(t *testing.T) {
	d := &PhotoDetails{Files: []File{{UID: "a"}, {UID: "b"}}}
	f, ok := d.PrimaryFile()
	assert.True(t, ok)
	assert.Equal(t, "a", f.UID)

	_, ok = (&PhotoDetails{}).PrimaryFile()
	assert.False(t, ok)

	assert.True(t, (&PhotoDetails{DeletedAt: "2024-01-01T00:00:00Z"}).Deleted())
}

func TestUploadAndProcess(t *testing.T) {
	pp, fake := setup(t, 0)
	ctx := context.Background()

	token, err := pp.UploadData(ctx, "moment.jpg", []byte("composite"))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NoError(t, pp.ProcessUpload(ctx, token, []string{"al1"}))

	assert.Equal(t, []string{"moment.jpg=composite"}, fake.uploads)
	assert.Equal(t, [][]string{{"al1"}}, fake.albums)
}

func TestUpload_WithoutSession(t *testing.T) {
	pp, err := NewPhotoPrismFromToken("http://localhost:2342", "t", "d")
	require.NoError(t, err)
	_, err = pp.UploadData(context.Background(), "x.jpg", nil)
	assert.Error(t, err)
}

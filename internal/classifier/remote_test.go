package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/testutil"
)

var shape = InputShape{Width: 16, Height: 12, Channels: 1}

func newRemote(t *testing.T, url string) *Remote {
	t.Helper()
	r, err := NewRemote(url, "PCA", shape, WithRetries(2), WithBackoff(time.Millisecond))
	require.NoError(t, err)
	return r
}

func TestRemotePredictPostsPreparedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict/PCA", r.URL.Path)

		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		assert.NoError(t, err)

		img, err := imageio.Decode(data, imageio.Unchanged)
		if assert.NoError(t, err) {
			assert.Equal(t, shape.Width, img.Cols())
			assert.Equal(t, shape.Height, img.Rows())
			assert.Equal(t, shape.Channels, img.Channels())
			img.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"scores":[0.7,0.3]}`))
	}))
	defer srv.Close()

	scores, err := newRemote(t, srv.URL).Predict(context.Background(), testutil.RandomImage(t, 30, 40, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, Scores{Fake: 0.7, Real: 0.3}, scores)
}

func TestRemoteRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"scores":[0.1,0.9]}`))
	}))
	defer srv.Close()

	scores, err := newRemote(t, srv.URL).Predict(context.Background(), testutil.RandomImage(t, 8, 8, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, Scores{Fake: 0.1, Real: 0.9}, scores)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Predict(context.Background(), testutil.RandomImage(t, 8, 8, 1, 1))
	assert.ErrorIs(t, err, errs.ErrIOFailure)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Predict(context.Background(), testutil.RandomImage(t, 8, 8, 1, 1))
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemoteRejectsWrongScoreCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scores":[1.0]}`))
	}))
	defer srv.Close()

	_, err := newRemote(t, srv.URL).Predict(context.Background(), testutil.RandomImage(t, 8, 8, 1, 1))
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestRemoteHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	r := newRemote(t, srv.URL+"/")
	assert.NoError(t, r.Health(context.Background()))

	healthy.Store(false)
	assert.ErrorIs(t, r.Health(context.Background()), errs.ErrIOFailure)
}

func TestNewRemoteValidates(t *testing.T) {
	_, err := NewRemote("not a url", "ELA", shape)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewRemote("http://localhost:5000", "", shape)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewRemote("http://localhost:5000", "ELA", InputShape{Width: 8, Height: 8, Channels: 4})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for _, opts := range [][]RemoteOption{
		{WithHTTPClient(shared), WithTimeout(2 * time.Second)},
		{WithTimeout(2 * time.Second), WithHTTPClient(shared)},
	} {
		r, err := NewRemote("http://localhost:5000", "ELA", shape, opts...)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, r.client.Timeout)
		assert.NotSame(t, shared, r.client)
	}
	assert.Equal(t, time.Minute, shared.Timeout)

	r, err := NewRemote("http://localhost:5000", "ELA", shape, WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Same(t, shared, r.client)
}

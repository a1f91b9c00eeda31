package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/vaani/internal/provider"
)

func TestJSONMapsStatusesToTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, provider.ErrUnavailable},
		{http.StatusServiceUnavailable, provider.ErrUnavailable},
		{http.StatusBadRequest, provider.ErrRejected},
		{http.StatusUnauthorized, provider.ErrRejected},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		err := New("groq").JSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"a": "b"}, nil)
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.Contains(t, err.Error(), "nope")
		assert.Contains(t, err.Error(), "groq")
	}
}

func TestJSONDecodesSuccessAndRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Token abc", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"p1"}`))
	}))
	defer srv.Close()

	c := New("replicate")
	var out struct {
		ID string `json:"id"`
	}
	err := c.JSON(context.Background(), http.MethodPost, srv.URL+"/ok", Header("Authorization", "Token abc"), map[string]any{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "p1", out.ID)

	err = c.JSON(context.Background(), http.MethodGet, srv.URL+"/bad", nil, nil, &out)
	assert.ErrorIs(t, err, provider.ErrRejected)
}

func TestDeadlineBecomesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := New("deepgram").JSON(ctx, http.MethodGet, srv.URL, nil, nil, nil)
	assert.ErrorIs(t, err, provider.ErrTimeout)
}

func TestCancelIsNotClassifiedAsProviderFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New("deepgram").JSON(ctx, http.MethodGet, "http://127.0.0.1:1", nil, nil, nil)
	assert.True(t, errors.Is(err, context.Canceled), "error = %v", err)
}

func TestConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := New("cartesia").JSON(context.Background(), http.MethodGet, addr, nil, nil, nil)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestMultipartSendsFileAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "audio.wav", hdr.Filename)
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Text string `json:"text"`
	}
	err := New("openai_whisper").Multipart(context.Background(), srv.URL, nil,
		map[string]string{"model": "whisper-1"},
		[]FilePart{{Field: "file", Filename: "audio.wav", ContentType: "audio/wav", Data: []byte("RIFF")}},
		&out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
}

func TestRequireKeys(t *testing.T) {
	c := New("vapi")
	assert.NoError(t, c.RequireKeys("k", "assistant"))
	err := c.RequireKeys("k", " ")
	assert.ErrorIs(t, err, provider.ErrMissingCredentials)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestRateLimitRespectsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("groq", WithRateLimit(0.5, 1))
	require.NoError(t, c.JSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.JSON(ctx, http.MethodGet, srv.URL, nil, nil, nil)
	assert.ErrorIs(t, err, provider.ErrTimeout)
}

package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
)

const (
	DefaultFetchTimeout = 60 * time.Second
	MaxFetchBytes       = 50 << 20
)

var ErrFetchFailed = errors.New("audio fetch failed")

// AudioFetcher retrieves synthesized audio that a TTS provider hosts remotely.
type AudioFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type HTTPAudioFetcher struct {
	api     *apiclient.Client
	timeout time.Duration
}

func NewHTTPAudioFetcher(timeout time.Duration, opts ...apiclient.Option) *HTTPAudioFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	opts = append([]apiclient.Option{apiclient.WithMaxBody(MaxFetchBytes)}, opts...)
	return &HTTPAudioFetcher{api: apiclient.New("audio_fetch", opts...), timeout: timeout}
}

// Fetch downloads at most MaxFetchBytes within the fetch timeout. Every
// failure wraps ErrFetchFailed.
func (f *HTTPAudioFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrFetchFailed, rawURL)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.api.Raw(ctx, http.MethodGet, u.String(), nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrFetchFailed)
	}
	return body, nil
}

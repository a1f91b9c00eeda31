package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

func TestReplicateXTTSReturnsOutputURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/predictions":
			var body struct {
				Version string         `json:"version"`
				Input   map[string]any `json:"input"`
			}
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
				return
			}
			assert.Equal(t, "684bc3855b37866c0c65add2ff39c78f3dea3f4ff103a436465326e0f438d55e", body.Version)
			assert.Equal(t, "hi", body.Input["language"])
			assert.Equal(t, "https://files.example/ref.wav", body.Input["speaker"])
			_, _ = w.Write([]byte(`{"id":"p1","status":"starting"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/p1":
			_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded","output":"https://cdn.example/out.wav"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := replicate.New(apiclient.New("replicate_xtts"), replicate.Config{
		Token:   "r8",
		BaseURL: srv.URL,
		Poll:    provider.PollConfig{Interval: time.Millisecond, MaxAttempts: 5},
	})
	x := NewReplicateXTTS(client, "")
	res, err := x.Synthesize(context.Background(), provider.TTSRequest{
		Text:     "नमस्ते",
		Language: "hi-IN",
		Voice:    "https://files.example/ref.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/out.wav", res.URL)
	assert.Empty(t, res.Audio)
}

func TestReplicateXTTSWithoutTokenIsUnavailable(t *testing.T) {
	x := NewReplicateXTTS(replicate.New(apiclient.New("replicate_xtts"), replicate.Config{}), "")
	_, err := x.Synthesize(context.Background(), provider.TTSRequest{Text: "hi"})
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestElevenLabsUsesDefaultVoiceAndSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/"+ElevenLabsDefaultVoice, r.URL.Path)
		assert.Equal(t, "xi", r.Header.Get("xi-api-key"))
		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "eleven_multilingual_v2", body["model_id"])
		settings, _ := body["voice_settings"].(map[string]any)
		assert.Equal(t, 0.5, settings["stability"])
		assert.Equal(t, 0.75, settings["similarity_boost"])
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	e := NewElevenLabs(apiclient.New("elevenlabs"), "xi", srv.URL)
	res, err := e.Synthesize(context.Background(), provider.TTSRequest{Text: "hello", Language: "en-IN"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), res.Audio)
	assert.Equal(t, "mp3", res.Format)
}

func TestElevenLabsQuotaMapsToRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewElevenLabs(apiclient.New("elevenlabs"), "xi", srv.URL).
		Synthesize(context.Background(), provider.TTSRequest{Text: "hello"})
	assert.ErrorIs(t, err, provider.ErrRejected)
}

func TestGoogleDecodesAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text:synthesize", r.URL.Path)
		assert.Equal(t, "gk", r.URL.Query().Get("key"))
		var body struct {
			Voice       map[string]string `json:"voice"`
			AudioConfig map[string]string `json:"audioConfig"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "ta-IN", body.Voice["languageCode"])
		assert.Equal(t, "MP3", body.AudioConfig["audioEncoding"])
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer srv.Close()

	res, err := NewGoogle(apiclient.New("google_tts"), "gk", srv.URL).
		Synthesize(context.Background(), provider.TTSRequest{Text: "vanakkam", Language: "ta"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), res.Audio)
}

func TestGoogleMissingAudioContentIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewGoogle(apiclient.New("google_tts"), "gk", srv.URL).
		Synthesize(context.Background(), provider.TTSRequest{Text: "x"})
	assert.ErrorIs(t, err, provider.ErrRejected)
}

func TestAzurePostsEscapedSSML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cognitiveservices/v1", r.URL.Path)
		assert.Equal(t, "az", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Microsoft-OutputFormat"))
		b, _ := io.ReadAll(r.Body)
		ssml := string(b)
		assert.Contains(t, ssml, `xml:lang="hi-IN"`)
		assert.Contains(t, ssml, `name="hi-IN-SwaraNeural"`)
		assert.Contains(t, ssml, "a &amp; b")
		_, _ = w.Write([]byte("azure-audio"))
	}))
	defer srv.Close()

	res, err := NewAzure(apiclient.New("azure_tts"), "az", "centralindia", srv.URL).
		Synthesize(context.Background(), provider.TTSRequest{Text: "a & b", Language: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []byte("azure-audio"), res.Audio)
}

func TestAzureNeedsRegion(t *testing.T) {
	_, err := NewAzure(apiclient.New("azure_tts"), "az", "", "").
		Synthesize(context.Background(), provider.TTSRequest{Text: "x"})
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestCartesiaRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tts/bytes", r.URL.Path)
		assert.Equal(t, "ck", r.Header.Get("X-API-Key"))
		assert.Equal(t, CartesiaVersion, r.Header.Get("Cartesia-Version"))
		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "sonic-multilingual", body["model_id"])
		assert.Equal(t, "hi", body["language"])
		voice, _ := body["voice"].(map[string]any)
		assert.Equal(t, "voice-7", voice["id"])
		_, _ = w.Write([]byte("RIFF....WAVE"))
	}))
	defer srv.Close()

	res, err := NewCartesia(apiclient.New("cartesia"), "ck", srv.URL).
		Synthesize(context.Background(), provider.TTSRequest{Text: "namaste", Language: "hi-IN", Voice: "voice-7"})
	require.NoError(t, err)
	assert.Equal(t, "wav", res.Format)
}

func TestEmptyTextIsRejectedBeforeNetwork(t *testing.T) {
	adapters := map[string]provider.TTSAdapter{
		"elevenlabs": NewElevenLabs(apiclient.New("elevenlabs"), "k", "http://127.0.0.1:1"),
		"cartesia":   NewCartesia(apiclient.New("cartesia"), "k", "http://127.0.0.1:1"),
		"google":     NewGoogle(apiclient.New("google_tts"), "k", "http://127.0.0.1:1"),
		"edge":       NewEdge(""),
		"mock":       Mock{},
	}
	for name, a := range adapters {
		_, err := a.Synthesize(context.Background(), provider.TTSRequest{Text: "   "})
		assert.ErrorIs(t, err, provider.ErrRejected, name)
	}
}

func TestMockProducesPlayableWAV(t *testing.T) {
	res, err := Mock{}.Synthesize(context.Background(), provider.TTSRequest{Text: "one two three"})
	require.NoError(t, err)
	info := audio.Inspect(res.Audio)
	assert.Equal(t, audio.FormatWAV, info.Format)
	assert.Equal(t, 16000, info.SampleRate)
	assert.True(t, strings.HasPrefix(string(res.Audio), "RIFF"))
}

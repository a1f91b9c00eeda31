package stt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

func wavClip(t *testing.T) []byte {
	t.Helper()
	b, err := audio.EncodeWAVPCM16LE(make([]byte, 3200), 16000)
	require.NoError(t, err)
	return b
}

func TestWhisperPostsMultipartWithBaseLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer gsk", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "hi", r.FormValue("language"))
		_, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			assert.Equal(t, "audio.wav", hdr.Filename)
		}
		_, _ = w.Write([]byte(`{"text":"नमस्ते"}`))
	}))
	defer srv.Close()

	w := NewWhisper(apiclient.New("groq_whisper"), WhisperConfig{APIKey: "gsk", BaseURL: srv.URL, Model: "whisper-large-v3"})
	res, err := w.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "hi-IN"})
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते", res.Text)
}

func TestWhisperWithoutKeyIsUnavailable(t *testing.T) {
	w := NewOpenAIWhisper(apiclient.New("openai_whisper"), "")
	_, err := w.Transcribe(context.Background(), provider.STTRequest{Audio: []byte{1}})
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestDeepgramParsesFirstAlternative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token dg", r.Header.Get("Authorization"))
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		assert.Equal(t, "ta", r.URL.Query().Get("language"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"vanakkam","confidence":0.93}]}]}}`))
	}))
	defer srv.Close()

	d := NewDeepgram(apiclient.New("deepgram"), "dg", srv.URL)
	res, err := d.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "ta"})
	require.NoError(t, err)
	assert.Equal(t, "vanakkam", res.Text)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
}

func TestAssemblyAIUploadsSubmitsAndPolls(t *testing.T) {
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aai", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/upload":
			body, _ := io.ReadAll(r.Body)
			assert.NotEmpty(t, body)
			_, _ = w.Write([]byte(`{"upload_url":"` + srv.URL + `/blob/1"}`))
		case r.URL.Path == "/transcript" && r.Method == http.MethodPost:
			var job map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&job))
			assert.Equal(t, "bn", job["language_code"])
			_, _ = w.Write([]byte(`{"id":"tr1","status":"queued"}`))
		case r.URL.Path == "/transcript/tr1":
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"id":"tr1","status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"tr1","status":"completed","text":"nomoshkar","confidence":0.8}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a := NewAssemblyAI(apiclient.New("assemblyai"), "aai", srv.URL, provider.PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 10})
	res, err := a.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "bn"})
	require.NoError(t, err)
	assert.Equal(t, "nomoshkar", res.Text)
}

func TestAssemblyAIErrorStatusIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			_, _ = w.Write([]byte(`{"upload_url":"https://cdn/x"}`))
		case "/transcript":
			_, _ = w.Write([]byte(`{"id":"tr2","status":"queued"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"tr2","status":"error","error":"audio too short"}`))
		}
	}))
	defer srv.Close()

	a := NewAssemblyAI(apiclient.New("assemblyai"), "aai", srv.URL, provider.PollConfig{Interval: time.Millisecond, MaxAttempts: 3})
	_, err := a.Transcribe(context.Background(), provider.STTRequest{Audio: []byte{1, 2}})
	assert.ErrorIs(t, err, provider.ErrRejected)
	assert.Contains(t, err.Error(), "audio too short")
}

func TestGoogleSendsLocaleAndEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech:recognize", r.URL.Path)
		assert.Equal(t, "gk", r.URL.Query().Get("key"))
		var body struct {
			Config map[string]any `json:"config"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi-IN", body.Config["languageCode"])
		assert.Equal(t, "LINEAR16", body.Config["encoding"])
		assert.EqualValues(t, 16000, body.Config["sampleRateHertz"])
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"नमस्ते","confidence":0.9}]},{"alternatives":[{"transcript":"दोस्त"}]}]}`))
	}))
	defer srv.Close()

	g := NewGoogle(apiclient.New("google_stt"), "gk", srv.URL)
	res, err := g.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते दोस्त", res.Text)
}

func TestGoogleNoResultsIsSilence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res, err := NewGoogle(apiclient.New("google_stt"), "gk", srv.URL).Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t)})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestAzureStatuses(t *testing.T) {
	status := "Success"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "az", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "mr-IN", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(`{"RecognitionStatus":"` + status + `","DisplayText":"namaskar","NBest":[{"Confidence":0.7}]}`))
	}))
	defer srv.Close()

	a := NewAzure(apiclient.New("azure_stt"), "az", "centralindia", srv.URL)
	res, err := a.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "mr"})
	require.NoError(t, err)
	assert.Equal(t, "namaskar", res.Text)

	status = "NoMatch"
	res, err = a.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "mr"})
	require.NoError(t, err)
	assert.Empty(t, res.Text)

	status = "Error"
	_, err = a.Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "mr"})
	assert.ErrorIs(t, err, provider.ErrRejected)
}

func TestReplicateWhisperSendsDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input map[string]string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Input["audio"], "data:audio/wav;base64,")
		assert.Equal(t, "kn", body.Input["language"])
		_, _ = w.Write([]byte(`{"id":"p","status":"succeeded","output":{"transcription":"namaskara"}}`))
	}))
	defer srv.Close()

	client := replicate.New(apiclient.New("replicate_whisper"), replicate.Config{Token: "r8", BaseURL: srv.URL})
	res, err := NewReplicateWhisper(client).Transcribe(context.Background(), provider.STTRequest{Audio: wavClip(t), Language: "kn-IN"})
	require.NoError(t, err)
	assert.Equal(t, "namaskara", res.Text)
}

func TestMockReturnsSilenceForEmptyAudio(t *testing.T) {
	res, err := Mock{}.Transcribe(context.Background(), provider.STTRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

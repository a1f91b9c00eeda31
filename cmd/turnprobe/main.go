// Command turnprobe replays synthetic caller turns against a running server
// and reports per-stage latency for each conversation turn.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/protocol"
	"github.com/ent0n29/vaani/internal/reliability"
)

type options struct {
	baseURL     string
	agentID     string
	language    string
	text        string
	audioFile   string
	turns       int
	binary      bool
	turnTimeout time.Duration
	dialRetries int
	verbose     bool
}

// turnTiming holds the offsets from send to each server event.
type turnTiming struct {
	Transcription time.Duration
	AIResponse    time.Duration
	Audio         time.Duration
	Err           string
}

type event struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Message string `json:"message"`
	Audio   string `json:"audio"`
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "turnprobe: %v\n", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	timings, err := run(ctx, opts, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "turnprobe: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, timings)
	for _, t := range timings {
		if t.Err != "" {
			os.Exit(1)
		}
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("turnprobe", flag.ContinueOnError)
	fs.StringVar(&opts.baseURL, "base-url", "http://127.0.0.1:8080", "server base URL")
	fs.StringVar(&opts.agentID, "agent-id", "", "existing agent to talk to; a throwaway agent is created when empty")
	fs.StringVar(&opts.language, "language", "hi", "language for the throwaway agent and synthesized prompt")
	fs.StringVar(&opts.text, "text", "नमस्ते, आप कैसे हैं?", "utterance synthesized through /v1/tts/synthesize")
	fs.StringVar(&opts.audioFile, "audio-file", "", "send this audio file instead of synthesizing one")
	fs.IntVar(&opts.turns, "turns", 5, "number of turns to replay")
	fs.BoolVar(&opts.binary, "binary", false, "send audio as binary frames instead of JSON")
	fs.DurationVar(&opts.turnTimeout, "turn-timeout", 60*time.Second, "max wait for a turn's events")
	fs.IntVar(&opts.dialRetries, "dial-retries", 3, "websocket dial attempts")
	fs.BoolVar(&opts.verbose, "verbose", true, "print per-turn progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.baseURL = strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")
	if opts.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if opts.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if opts.turnTimeout < time.Second {
		opts.turnTimeout = time.Second
	}
	if opts.dialRetries <= 0 {
		opts.dialRetries = 1
	}
	if opts.audioFile == "" && strings.TrimSpace(opts.text) == "" {
		return options{}, fmt.Errorf("either text or audio-file is required")
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) ([]turnTiming, error) {
	client := &http.Client{Timeout: 2 * time.Minute}

	clip, err := loadClip(ctx, client, opts)
	if err != nil {
		return nil, fmt.Errorf("prepare audio: %w", err)
	}
	if opts.verbose {
		info := audio.Inspect(clip)
		fmt.Fprintf(out, "turnprobe: clip format=%s bytes=%d duration=%s\n", info.Format, len(clip), info.Duration)
	}

	agentID := opts.agentID
	if agentID == "" {
		agentID, err = createAgent(ctx, client, opts)
		if err != nil {
			return nil, fmt.Errorf("create agent: %w", err)
		}
		defer func() { _ = deleteAgent(context.Background(), client, opts.baseURL, agentID) }()
	}

	wsURL, err := wsURLForAgent(opts.baseURL, agentID)
	if err != nil {
		return nil, fmt.Errorf("build ws URL: %w", err)
	}
	conn, err := dialWithRetry(ctx, wsURL, opts.dialRetries)
	if err != nil {
		return nil, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	ready, err := readEvent(conn, opts.turnTimeout)
	if err != nil {
		return nil, fmt.Errorf("await ready: %w", err)
	}
	if ready.Type != string(protocol.TypeReady) {
		return nil, fmt.Errorf("expected ready, got %s %s", ready.Type, ready.Message)
	}

	timings := make([]turnTiming, 0, opts.turns)
	for i := 0; i < opts.turns; i++ {
		t, err := probeTurn(conn, clip, opts)
		if err != nil {
			return timings, fmt.Errorf("turn %d: %w", i+1, err)
		}
		if opts.verbose {
			if t.Err != "" {
				fmt.Fprintf(out, "turnprobe: turn %d/%d error=%q\n", i+1, opts.turns, t.Err)
			} else {
				fmt.Fprintf(out, "turnprobe: turn %d/%d stt=%s llm=%s tts=%s\n",
					i+1, opts.turns, t.Transcription, t.AIResponse, t.Audio)
			}
		}
		timings = append(timings, t)
	}
	return timings, nil
}

func loadClip(ctx context.Context, client *http.Client, opts options) ([]byte, error) {
	if opts.audioFile != "" {
		return os.ReadFile(opts.audioFile)
	}
	var res struct {
		Audio    string `json:"audio"`
		AudioURL string `json:"audio_url"`
	}
	body := map[string]string{"text": opts.text, "language": opts.language}
	if err := postJSON(ctx, client, opts.baseURL+"/v1/tts/synthesize", body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	if res.Audio == "" {
		return nil, fmt.Errorf("synthesis returned no inline audio (audio_url=%q)", res.AudioURL)
	}
	return base64.StdEncoding.DecodeString(res.Audio)
}

func createAgent(ctx context.Context, client *http.Client, opts options) (string, error) {
	body := map[string]string{
		"name":               "turnprobe",
		"job_role":           "latency probe",
		"system_instruction": "Answer in one short sentence.",
		"language":           opts.language,
	}
	var res struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, client, opts.baseURL+"/v1/agents", body, http.StatusCreated, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", fmt.Errorf("missing id in response")
	}
	return res.ID, nil
}

func deleteAgent(ctx context.Context, client *http.Client, baseURL, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, baseURL+"/v1/agents/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func postJSON(ctx context.Context, client *http.Client, target string, in any, want int, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 40<<20))
	if err != nil {
		return err
	}
	if res.StatusCode != want {
		return fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func wsURLForAgent(baseURL, agentID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	// Path is the decoded form; String escapes it once.
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/agents/" + agentID + "/ws"
	u.RawPath = ""
	return u.String(), nil
}

func dialWithRetry(ctx context.Context, wsURL string, attempts int) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, 250*time.Millisecond, 4*time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func probeTurn(conn *websocket.Conn, clip []byte, opts options) (turnTiming, error) {
	start := time.Now()
	if opts.binary {
		if err := conn.WriteMessage(websocket.BinaryMessage, clip); err != nil {
			return turnTiming{}, err
		}
	} else {
		msg := map[string]string{
			"type":   string(protocol.TypeAudio),
			"audio":  base64.StdEncoding.EncodeToString(clip),
			"format": audio.Sniff(clip),
		}
		if err := conn.WriteJSON(msg); err != nil {
			return turnTiming{}, err
		}
	}

	var t turnTiming
	deadline := start.Add(opts.turnTimeout)
	for {
		ev, err := readEvent(conn, time.Until(deadline))
		if err != nil {
			return t, err
		}
		elapsed := time.Since(start)
		switch ev.Type {
		case string(protocol.TypeTranscription):
			t.Transcription = elapsed
		case string(protocol.TypeAIResponse):
			t.AIResponse = elapsed
		case string(protocol.TypeAudio):
			t.Audio = elapsed
			return t, nil
		case string(protocol.TypeError):
			t.Err = ev.Message
			return t, nil
		}
	}
}

func readEvent(conn *websocket.Conn, timeout time.Duration) (event, error) {
	if timeout <= 0 {
		return event{}, fmt.Errorf("timed out")
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var ev event
	if err := conn.ReadJSON(&ev); err != nil {
		return event{}, err
	}
	return ev, nil
}

func printSummary(w io.Writer, timings []turnTiming) {
	var stt, llm, tts []time.Duration
	failed := 0
	for _, t := range timings {
		if t.Err != "" {
			failed++
			continue
		}
		stt = append(stt, t.Transcription)
		llm = append(llm, t.AIResponse)
		tts = append(tts, t.Audio)
	}
	fmt.Fprintf(w, "turnprobe: turns=%d failed=%d\n", len(timings), failed)
	for _, row := range []struct {
		name string
		vals []time.Duration
	}{{"transcription", stt}, {"ai_response", llm}, {"audio", tts}} {
		if len(row.vals) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-13s p50=%s p95=%s\n", row.name, percentile(row.vals, 50), percentile(row.vals, 95))
	}
}

// percentile uses nearest-rank on a sorted copy.
func percentile(vals []time.Duration, p int) time.Duration {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

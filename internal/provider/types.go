package provider

import (
	"context"
	"fmt"
	"strings"
)

// Capability identifies a class of upstream provider.
type Capability string

const (
	CapabilitySTT        Capability = "stt"
	CapabilityLLM        Capability = "llm"
	CapabilityTTS        Capability = "tts"
	CapabilityTelephony  Capability = "telephony"
	CapabilityVoiceClone Capability = "voice_clone"
)

// Capabilities lists every capability class in display order.
var Capabilities = []Capability{
	CapabilityLLM,
	CapabilityTTS,
	CapabilitySTT,
	CapabilityTelephony,
	CapabilityVoiceClone,
}

func ParseCapability(raw string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CapabilitySTT, CapabilityLLM, CapabilityTTS, CapabilityTelephony, CapabilityVoiceClone:
		return c, nil
	case "voice-clone", "voiceclone":
		return CapabilityVoiceClone, nil
	default:
		return "", fmt.Errorf("unknown capability %q", raw)
	}
}

type STTRequest struct {
	Audio    []byte
	Format   string
	Language string
}

type STTResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type LLMRequest struct {
	Prompt            string
	SystemInstruction string
	Language          string
	Temperature       float64
	MaxTokens         int
}

type LLMResult struct {
	Text string `json:"text"`
}

// TTSRequest carries an optional Voice selector; adapters fall back to their own default voice.
type TTSRequest struct {
	Text     string
	Language string
	Voice    string
}

// TTSResult holds inline Audio or a remote URL the caller must fetch.
type TTSResult struct {
	Audio  []byte
	URL    string
	Format string
}

type CallRequest struct {
	To       string
	From     string
	AgentID  string
	Greeting string
}

type CallResult struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

type Recording struct {
	ID     string `json:"recording_id"`
	Status string `json:"status"`
}

type CloneRequest struct {
	Name     string
	Samples  [][]byte
	Language string
}

// CloneResult.Reference is the opaque value a TTS adapter accepts as its voice selector.
type CloneResult struct {
	Reference string
}

type STTAdapter interface {
	Transcribe(ctx context.Context, req STTRequest) (STTResult, error)
}

type LLMAdapter interface {
	Generate(ctx context.Context, req LLMRequest) (LLMResult, error)
}

type TTSAdapter interface {
	Synthesize(ctx context.Context, req TTSRequest) (TTSResult, error)
}

type TelephonyAdapter interface {
	PlaceCall(ctx context.Context, req CallRequest) (CallResult, error)
	CallStatus(ctx context.Context, callID string) (CallResult, error)
	HangUp(ctx context.Context, callID string) error
}

// CallRecorder is implemented by telephony adapters that can record a live call.
type CallRecorder interface {
	RecordCall(ctx context.Context, callID string) (Recording, error)
}

type VoiceCloneAdapter interface {
	Clone(ctx context.Context, req CloneRequest) (CloneResult, error)
}

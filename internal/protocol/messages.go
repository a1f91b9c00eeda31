package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeAudio         MessageType = "audio"
	TypeReady         MessageType = "ready"
	TypeTranscription MessageType = "transcription"
	TypeAIResponse    MessageType = "ai_response"
	TypeError         MessageType = "error"
)

var (
	ErrMalformedEvent  = errors.New("malformed event")
	ErrUnsupportedType = fmt.Errorf("%w: unsupported message type", ErrMalformedEvent)
)

type Envelope struct {
	Type MessageType `json:"type"`
}

// InboundAudio is one caller utterance, decoded from either a JSON text frame
// or a raw binary frame.
type InboundAudio struct {
	Audio  []byte
	Format string
}

type clientAudio struct {
	Type    MessageType `json:"type"`
	Audio   string      `json:"audio"`
	Payload string      `json:"payload"`
	Format  string      `json:"format"`
}

type Ready struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	AgentID   string      `json:"agent_id,omitempty"`
}

type Transcription struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type AIResponse struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type Audio struct {
	Type  MessageType `json:"type"`
	Audio string      `json:"audio"`
}

type Error struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewReady(sessionID, agentID string) Ready {
	return Ready{Type: TypeReady, SessionID: sessionID, AgentID: agentID}
}

func NewTranscription(text string) Transcription {
	return Transcription{Type: TypeTranscription, Text: text}
}

func NewAIResponse(text string) AIResponse {
	return AIResponse{Type: TypeAIResponse, Text: text}
}

func NewAudio(audio []byte) Audio {
	return Audio{Type: TypeAudio, Audio: base64.StdEncoding.EncodeToString(audio)}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// ParseClientMessage decodes a JSON text frame. Only audio events are
// accepted; "payload" is read when "audio" is absent.
func ParseClientMessage(raw []byte) (InboundAudio, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return InboundAudio{}, fmt.Errorf("%w: invalid envelope: %v", ErrMalformedEvent, err)
	}
	if env.Type != TypeAudio {
		return InboundAudio{}, ErrUnsupportedType
	}

	var msg clientAudio
	if err := json.Unmarshal(raw, &msg); err != nil {
		return InboundAudio{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	encoded := strings.TrimSpace(msg.Audio)
	if encoded == "" {
		encoded = strings.TrimSpace(msg.Payload)
	}
	if encoded == "" {
		return InboundAudio{}, fmt.Errorf("%w: audio event without payload", ErrMalformedEvent)
	}
	audio, err := decodeBase64(encoded)
	if err != nil {
		return InboundAudio{}, fmt.Errorf("%w: audio is not base64: %v", ErrMalformedEvent, err)
	}
	if len(audio) == 0 {
		return InboundAudio{}, fmt.Errorf("%w: empty audio", ErrMalformedEvent)
	}
	return InboundAudio{Audio: audio, Format: strings.ToLower(strings.TrimSpace(msg.Format))}, nil
}

// FromBinary wraps a binary frame as an utterance.
func FromBinary(frame []byte) (InboundAudio, error) {
	if len(frame) == 0 {
		return InboundAudio{}, fmt.Errorf("%w: empty binary frame", ErrMalformedEvent)
	}
	audio := make([]byte, len(frame))
	copy(audio, frame)
	return InboundAudio{Audio: audio}, nil
}

// MessageTypeOf reports the "type" of an outbound event for metrics labels.
func MessageTypeOf(msg any) string {
	switch m := msg.(type) {
	case Ready:
		return string(m.Type)
	case Transcription:
		return string(m.Type)
	case AIResponse:
		return string(m.Type)
	case Audio:
		return string(m.Type)
	case Error:
		return string(m.Type)
	default:
		return "unknown"
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Browsers sometimes send a data URL.
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/vaani/internal/protocol"
	"github.com/ent0n29/vaani/internal/session"
)

const (
	wsReadLimit    = 16 << 20
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 90 * time.Second
	wsPingEvery    = 30 * time.Second
)

// handleConversationWS runs one conversation per socket with a reader, the
// conversation runner and a writer. Only the writer touches the socket for
// data frames.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.sessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.InboundAudio, 16)
	outbound := make(chan any, 64)
	conv := session.NewConversation(session.Deps{
		Agents:  s.deps.Agents,
		Voices:  s.voiceResolver(),
		Runner:  s.deps.Runner,
		Manager: s.deps.Sessions,
	}, agentID)
	logger := log.With().Str("component", "ws").Str("session_id", conv.ID()).Str("agent_id", agentID).Logger()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		defer close(outbound)
		if err := conv.Run(ctx, inbound, outbound); err != nil && !errors.Is(err, session.ErrAgentNotFound) {
			logger.Warn().Err(err).Msg("conversation ended with error")
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, outbound, cancel)
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

readLoop:
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg protocol.InboundAudio
		switch frameType {
		case websocket.TextMessage:
			msg, err = protocol.ParseClientMessage(data)
		case websocket.BinaryMessage:
			msg, err = protocol.FromBinary(data)
		default:
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed client event")
			s.wsMessage("inbound", "malformed")
			continue
		}
		s.wsMessage("inbound", string(protocol.TypeAudio))

		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- msg:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.sessionEvent("ws_disconnected")
}

// wsConn is the write side of a websocket connection.
type wsConn interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// writeLoop drains outbound to the socket and sends keepalive pings. Every
// exit closes the socket so the reader unblocks.
func (s *Server) writeLoop(conn wsConn, outbound <-chan any, cancel context.CancelFunc) {
	defer conn.Close()
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-outbound:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			msgType := protocol.MessageTypeOf(msg)
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.outboundResult(msgType, "write_error")
				cancel()
				return
			}
			s.outboundResult(msgType, "sent")
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				cancel()
				return
			}
		}
	}
}

// voiceResolver avoids handing session a typed-nil interface.
func (s *Server) voiceResolver() session.VoiceResolver {
	if s.deps.Voices == nil {
		return nil
	}
	return s.deps.Voices
}

func (s *Server) sessionEvent(event string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionEvents.WithLabelValues(event).Inc()
	}
}

func (s *Server) wsMessage(direction, msgType string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
	}
}

func (s *Server) outboundResult(msgType, result string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.ObserveOutboundMessage(msgType, result)
	if result == "sent" {
		s.deps.Metrics.WSMessages.WithLabelValues("outbound", msgType).Inc()
	}
}

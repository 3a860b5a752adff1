package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/world"
)

const defaultQueue = 8

// Server bridges websocket clients to one world: HELLO joins, ACT feeds the inbox and the
// world's EVENT and STATION messages are written back.
type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}
		log := s.log.With(zap.String("player", playerID))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						log.Debug("write failed", zap.Error(err))
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			act, reason := decodeAct(msg)
			if reason != "" {
				log.Debug("rejected malformed message", zap.Int("bytes", len(msg)), zap.String("reason", reason))
				s.reject(out, protocol.ErrProtoBadRequest, reason)
				continue
			}
			select {
			case s.world.Inbox() <- world.ActionEnvelope{PlayerID: playerID, Act: act}:
			case <-ctx.Done():
			default:
				log.Debug("world inbox full", zap.String("ref", act.ID))
				s.reject(out, protocol.ErrRateLimit, "world busy, ACT "+act.ID+" dropped")
			}
		}

		s.world.Leave() <- playerID
	}
}

// decodeAct returns the ACT in msg, or a non-empty reason it was rejected.
func decodeAct(msg []byte) (protocol.ActMsg, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ActMsg{}, "malformed message"
	}
	if base.Type != protocol.TypeAct {
		return protocol.ActMsg{}, "unexpected message type " + base.Type
	}
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return protocol.ActMsg{}, "malformed ACT"
	}
	if act.ProtocolVersion != protocol.Version {
		return protocol.ActMsg{}, "bad protocol_version"
	}
	if len(act.Actions) == 0 {
		return protocol.ActMsg{}, "ACT without actions"
	}
	return act, ""
}

// reject queues an ERROR event for the client without blocking the reader.
func (s *Server) reject(out chan []byte, code, message string) {
	b, err := errorEvent(s.world.CurrentTick(), code, message)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func errorEvent(tick uint64, code, message string) ([]byte, error) {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	return json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Events:          []protocol.Event{{"type": "ERROR", "code": code, "message": message}},
	})
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if limit := s.world.MaxQueue(); maxQ > limit {
		maxQ = limit
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-time.After(10 * time.Second):
		closeWith(conn, "world busy")
		return "", nil
	}

	// Send welcome + catalogs immediately.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.PlayerID
		return "", nil
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			s.world.Leave() <- resp.Welcome.PlayerID
			return "", nil
		}
	}
	s.log.Info("client connected", zap.String("player", resp.Welcome.PlayerID), zap.String("name", hello.PlayerName))
	return resp.Welcome.PlayerID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

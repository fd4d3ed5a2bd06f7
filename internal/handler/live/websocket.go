// Package live 는 진행 중인 상담 통화를 위한 WebSocket 경로다. 클라이언트가
// 발화 텍스트 프레임을 보낼 때마다 같은 세션으로 파이프라인을 돌려 결과
// 프레임을 돌려준다.
package live

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	callmodel "github.com/seoyun-dev/carecall/backend/internal/model/call"
	"github.com/seoyun-dev/carecall/backend/internal/service/pipeline"
)

// Handler 는 WebSocket 라이브 분석 처리기.
type Handler struct {
	pipeline *pipeline.Service
	upgrader websocket.Upgrader
}

// New 는 라이브 핸들러를 만든다.
func New(pipelineSvc *pipeline.Service) *Handler {
	return &Handler{
		pipeline: pipelineSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 는 라이브 분석 라우트를 등록한다.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/{sessionID}", h.handleLive)
}

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outboundFrame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8 << 10
)

// liveConn 은 ping 루프와 응답 쓰기가 겹치지 않도록 쓰기를 직렬화한다.
type liveConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] websocket upgrade failed: %v", err)
		return
	}
	conn := &liveConn{Conn: raw}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log.Printf("[live] connection opened for session=%s", sessionID)

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	h.write(conn, outboundFrame{Type: "ready", SessionID: sessionID})

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[live] unexpected close for session=%s: %v", sessionID, err)
			}
			return
		}

		switch frame.Type {
		case "utterance":
			h.handleUtterance(r, conn, sessionID, frame.Text)
		case "reset":
			if err := h.pipeline.ResetSession(r.Context(), sessionID); err != nil {
				h.write(conn, outboundFrame{Type: "error", SessionID: sessionID, Error: err.Error()})
				continue
			}
			h.write(conn, outboundFrame{Type: "reset", SessionID: sessionID})
		default:
			h.write(conn, outboundFrame{Type: "error", SessionID: sessionID, Error: "unknown frame type"})
		}
	}
}

func (h *Handler) handleUtterance(r *http.Request, conn *liveConn, sessionID, text string) {
	guide, err := h.pipeline.Analyze(r.Context(), callmodel.Input{SessionID: sessionID, Text: text})
	if err != nil {
		log.Printf("[live] analysis failed for session=%s: %v", sessionID, err)
		h.write(conn, outboundFrame{Type: "error", SessionID: sessionID, Error: err.Error()})
		return
	}

	h.write(conn, outboundFrame{Type: "result", SessionID: sessionID, Data: callmodel.Result{Result: guide}})
}

func (h *Handler) write(conn *liveConn, frame outboundFrame) {
	frame.Timestamp = time.Now().UnixMilli()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[live] write failed: %v", err)
	}
}

func (h *Handler) pingLoop(conn *liveConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			conn.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

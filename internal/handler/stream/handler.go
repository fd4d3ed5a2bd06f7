package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	callmodel "github.com/seoyun-dev/carecall/backend/internal/model/call"
	"github.com/seoyun-dev/carecall/backend/internal/service/pipeline"
	"github.com/seoyun-dev/carecall/backend/pkg/utils"
)

// Handler 는 분석 단계를 Server-Sent Events 로 중계한다. 상담 화면이
// 최종 응대문이 나오기 전에 의도/감정/계획을 먼저 보여줄 수 있게 한다.
type Handler struct {
	pipeline *pipeline.Service
}

// New 는 스트림 핸들러를 만든다.
func New(pipelineSvc *pipeline.Service) *Handler {
	return &Handler{pipeline: pipelineSvc}
}

// StreamResponse 는 SSE 데이터 한 조각.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest 는 한 발화를 처리하며 단계별 이벤트를 흘려보낸다.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	emit := func(stage string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[stream] failed to marshal %s payload: %v", stage, err)
			return
		}
		h.sendSSE(w, flusher, StreamResponse{
			Event:     stage,
			SessionID: sessionID,
			Content:   string(data),
		})
	}

	guide, err := h.pipeline.AnalyzeStream(ctx, callmodel.Input{SessionID: sessionID, Text: userMessage}, emit)
	if err != nil {
		h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: err.Error()})
		return err
	}

	resultData, err := json.Marshal(callmodel.Result{Result: guide})
	if err != nil {
		h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: "failed to encode result"})
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "result",
		SessionID: sessionID,
		Content:   string(resultData),
	})
	h.sendSSE(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	log.Printf("[stream] completed analysis for session=%s intent=%s", sessionID, guide.Intent)
	return nil
}

// sendSSE 는 SSE 한 건을 내보낸다.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("failed to marshal SSE response: %v", err)
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

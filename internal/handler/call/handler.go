package call

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	callmodel "github.com/seoyun-dev/carecall/backend/internal/model/call"
	"github.com/seoyun-dev/carecall/backend/internal/model/policy"
	"github.com/seoyun-dev/carecall/backend/internal/service/pipeline"
	"github.com/seoyun-dev/carecall/backend/internal/service/speech"
	"github.com/seoyun-dev/carecall/backend/internal/session"
)

// Handler 는 분석 파이프라인의 HTTP 진입점.
type Handler struct {
	pipeline    *pipeline.Service
	policyStore policy.Store
	transcriber speech.Transcriber
}

// New 는 콜 분석 핸들러를 만든다. transcriber 는 nil 일 수 있다.
func New(pipelineSvc *pipeline.Service, policyStore policy.Store, transcriber speech.Transcriber) *Handler {
	return &Handler{
		pipeline:    pipelineSvc,
		policyStore: policyStore,
		transcriber: transcriber,
	}
}

// RegisterRoutes 는 분석 관련 라우트를 등록한다.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/analyze/audio", h.handleAnalyzeAudio)
	r.Post("/session", h.handleCreateSession)
	r.Delete("/session/{sessionID}", h.handleResetSession)
	r.Get("/policies", h.handleListPolicies)
}

// handleCreateSession 은 새 상담 세션 ID 를 발급한다. 클라이언트가
// 자체 세션 식별자를 갖고 있지 않을 때 쓴다.
func (h *Handler) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sessionID := uuid.NewString()
	log.Printf("[call] created session %s", sessionID)
	respondJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

// handleAnalyze 는 텍스트 발화 하나를 분석한다. 감정 필드가 없으면
// 파이프라인이 감정 분류 서비스로 보충한다.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var input callmodel.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.runAnalyze(w, r, input)
}

// handleAnalyzeAudio 는 multipart 오디오를 전사한 뒤 같은 파이프라인을 태운다.
func (h *Handler) handleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		respondError(w, http.StatusServiceUnavailable, "stt service not configured")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		log.Printf("[call] transcription failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "transcription failed")
		return
	}
	if text == "" {
		respondError(w, http.StatusBadRequest, "no speech recognized in audio")
		return
	}

	h.runAnalyze(w, r, callmodel.Input{SessionID: sessionID, Text: text})
}

func (h *Handler) runAnalyze(w http.ResponseWriter, r *http.Request, input callmodel.Input) {
	guide, err := h.pipeline.Analyze(r.Context(), input)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, callmodel.Result{Result: guide})
}

// handleResetSession 은 세션 smoothing 이력을 버린다.
func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.pipeline.ResetSession(r.Context(), sessionID); err != nil {
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleListPolicies 는 현재 검색 코퍼스에 올라간 정책 문서를 보여준다.
func (h *Handler) handleListPolicies(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.policyStore.List())
}

// respondPipelineError 는 실패 단계를 식별해 단일 실패 응답으로 바꾼다.
// 부분 결과는 내보내지 않는다.
func respondPipelineError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable

	var stageError *pipeline.StageError
	if errors.As(err, &stageError) && stageError.Stage == pipeline.StageValidate {
		status = http.StatusBadRequest
	}
	if errors.Is(err, session.ErrSessionIDRequired) || errors.Is(err, session.ErrScoreOutOfRange) {
		status = http.StatusBadRequest
	}

	stage := "pipeline"
	if stageError != nil {
		stage = stageError.Stage
	}

	log.Printf("[call] analyze failed at stage=%s: %v", stage, err)
	respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"stage": stage,
	})
}

// respondJSON 은 JSON 응답을 보낸다.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondError 는 오류 응답을 보낸다.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

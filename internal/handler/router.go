package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	callHandler "github.com/seoyun-dev/carecall/backend/internal/handler/call"
	"github.com/seoyun-dev/carecall/backend/internal/handler/live"
	streamHandler "github.com/seoyun-dev/carecall/backend/internal/handler/stream"
	middlewarePkg "github.com/seoyun-dev/carecall/backend/internal/middleware"
	"github.com/seoyun-dev/carecall/backend/internal/model/policy"
	pipelineService "github.com/seoyun-dev/carecall/backend/internal/service/pipeline"
	"github.com/seoyun-dev/carecall/backend/internal/service/speech"
	"github.com/seoyun-dev/carecall/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(pipelineSvc *pipelineService.Service, policyStore policy.Store, transcriber speech.Transcriber) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "carecall",
		})
	})

	r.Route("/api", func(api chi.Router) {
		if pipelineSvc == nil {
			api.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "analysis pipeline unavailable")
			})
			return
		}

		callHandler.New(pipelineSvc, policyStore, transcriber).RegisterRoutes(api)
		live.New(pipelineSvc).RegisterRoutes(api)

		streamer := streamHandler.New(pipelineSvc)
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamer.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}

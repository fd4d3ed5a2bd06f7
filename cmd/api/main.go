package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/joho/godotenv"

	"github.com/seoyun-dev/carecall/backend/internal/config"
	"github.com/seoyun-dev/carecall/backend/internal/handler"
	"github.com/seoyun-dev/carecall/backend/internal/model/policy"
	"github.com/seoyun-dev/carecall/backend/internal/planner"
	"github.com/seoyun-dev/carecall/backend/internal/retrieval"
	emotionservice "github.com/seoyun-dev/carecall/backend/internal/service/emotion"
	"github.com/seoyun-dev/carecall/backend/internal/service/guide"
	"github.com/seoyun-dev/carecall/backend/internal/service/intent"
	pipelineservice "github.com/seoyun-dev/carecall/backend/internal/service/pipeline"
	"github.com/seoyun-dev/carecall/backend/internal/service/speech"
	"github.com/seoyun-dev/carecall/backend/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 정책 코퍼스: 디렉터리가 지정되면 파일을, 아니면 내장 문서를 쓴다.
	policyStore := buildPolicyStore(cfg.Retrieval)

	// 세션 smoothing 저장소: redis 주소가 있으면 공유 저장소를 쓴다.
	sessionStore := buildSessionStore(ctx, cfg.Session)

	pipelineSvc := buildPipeline(ctx, cfg, policyStore, sessionStore)

	var transcriber speech.Transcriber
	if cfg.Speech.Enabled() {
		transcriber = speech.NewClient(cfg.Speech.ASRBaseURL, cfg.Speech.Timeout)
		log.Println("STT client initialized")
	} else {
		log.Println("SPEECH_ASR_URL not set, audio endpoint disabled")
	}

	router := handler.NewRouter(pipelineSvc, policyStore, transcriber)

	startServer(ctx, cfg.Server, router)
}

// buildPipeline 은 LLM 자격 증명이 있을 때만 파이프라인을 구성한다.
// 없으면 nil 을 돌려주고 API 는 service unavailable 로 응답한다.
func buildPipeline(ctx context.Context, cfg *config.Config, policyStore policy.Store, sessionStore session.Store) *pipelineservice.Service {
	if !cfg.AI.Enabled() {
		log.Println("ark credentials not configured, analysis pipeline disabled")
		return nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize chat model: %v", err)
		return nil
	}

	classifier, err := intent.NewClassifier(ctx, chatModel)
	if err != nil {
		log.Printf("warning: failed to initialize intent classifier: %v", err)
		return nil
	}

	emotionSvc, err := emotionservice.NewService(ctx, chatModel)
	if err != nil {
		log.Printf("warning: failed to initialize emotion service: %v", err)
		return nil
	}

	composer, err := guide.NewComposer(ctx, chatModel)
	if err != nil {
		log.Printf("warning: failed to initialize response composer: %v", err)
		return nil
	}

	plannerSvc := planner.NewRulePlanner()
	if cfg.AI.PlannerLLMEnabled {
		llmPlanner, err := planner.NewLLMPlanner(ctx, chatModel)
		if err != nil {
			log.Printf("warning: failed to initialize LLM planner, using rule planner: %v", err)
		} else {
			plannerSvc = llmPlanner
			log.Println("LLM planner enabled")
		}
	}

	var embedder embedding.Embedder
	if cfg.AI.EmbeddingEnabled() {
		embedder, err = cfg.AI.NewEmbedder(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize embedder, falling back to keyword retrieval: %v", err)
			embedder = nil
		}
	} else {
		log.Println("ARK_EMBEDDING_MODEL not set, policy retrieval uses keyword scoring")
	}

	retriever, err := retrieval.NewRetriever(ctx, policyStore, embedder, retrieval.Options{
		TopK:         cfg.Retrieval.TopK,
		MinScore:     cfg.Retrieval.MinScore,
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})
	if err != nil {
		log.Printf("warning: failed to build policy index: %v", err)
		return nil
	}

	log.Println("analysis pipeline initialized successfully")
	return pipelineservice.NewService(emotionSvc, classifier, sessionStore, plannerSvc, retriever, composer)
}

func buildPolicyStore(cfg config.RetrievalConfig) policy.Store {
	if cfg.PolicyDir == "" {
		return policy.NewMemoryStore(policy.Seed())
	}

	docs, err := policy.LoadDir(cfg.PolicyDir)
	if err != nil {
		log.Printf("warning: failed to load policy dir %s, using built-in corpus: %v", cfg.PolicyDir, err)
		return policy.NewMemoryStore(policy.Seed())
	}

	log.Printf("loaded %d policy documents from %s", len(docs), cfg.PolicyDir)
	return policy.NewMemoryStore(docs)
}

func buildSessionStore(ctx context.Context, cfg config.SessionConfig) session.Store {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.Window, cfg.MaxSessions)
	}

	store, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.Window, cfg.RedisTTL)
	if err != nil {
		log.Printf("warning: redis session store unavailable, using in-memory store: %v", err)
		return session.NewMemoryStore(cfg.Window, cfg.MaxSessions)
	}

	log.Printf("redis session store connected at %s", cfg.RedisAddr)
	return store
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CareCall backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	embedark "github.com/cloudwego/eino-ext/components/embedding/ark"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
)

// Config 는 서비스 전체 설정을 모은다.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Session   SessionConfig
	Retrieval RetrievalConfig
	Speech    SpeechConfig
}

// Load 는 환경 변수에서 설정을 읽는다.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Session:   session,
		Retrieval: retrieval,
		Speech:    speech,
	}, nil
}

// ServerConfig 는 HTTP 서버 설정.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" 또는 "127.0.0.1:8080" 형태도 허용한다.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 는 대형 언어 모델 관련 설정.
type AIConfig struct {
	APIKey            string
	AccessKey         string
	SecretKey         string
	Model             string
	EmbeddingModel    string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	PlannerLLMEnabled bool
}

// Enabled 는 필수 자격 증명이 제공되었는지 여부.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// EmbeddingEnabled 는 정책 검색용 임베딩 모델 사용 가능 여부.
func (c AIConfig) EmbeddingEnabled() bool {
	return c.EmbeddingModel != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 은 설정으로 채팅 모델 인스턴스를 만든다.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// NewEmbedder 는 정책 검색 인덱스용 임베딩 모델을 만든다.
func (c AIConfig) NewEmbedder(ctx context.Context) (embedding.Embedder, error) {
	if !c.EmbeddingEnabled() {
		return nil, fmt.Errorf("embedding model not configured: set ARK_EMBEDDING_MODEL")
	}

	return embedark.NewEmbedder(ctx, &embedark.EmbeddingConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.EmbeddingModel,
	})
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	plannerLLM, err := parseBoolEnv("PLANNER_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("ARK_MODEL")),
		EmbeddingModel:    strings.TrimSpace(os.Getenv("ARK_EMBEDDING_MODEL")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		PlannerLLMEnabled: plannerLLM,
	}, nil
}

// SessionConfig 는 세션별 감정 smoothing 저장소 설정.
type SessionConfig struct {
	Window      int
	MaxSessions int
	RedisAddr   string
	RedisTTL    time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	window := 3
	if override, err := parseOptionalIntEnv("SESSION_WINDOW"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return SessionConfig{}, fmt.Errorf("SESSION_WINDOW must be at least 1, got %d", *override)
		}
		window = *override
	}

	maxSessions := 1024
	if override, err := parseOptionalIntEnv("SESSION_MAX"); err != nil {
		return SessionConfig{}, err
	} else if override != nil && *override > 0 {
		maxSessions = *override
	}

	ttl := 30 * time.Minute
	if override, err := parseOptionalIntEnv("SESSION_REDIS_TTL_SECONDS"); err != nil {
		return SessionConfig{}, err
	} else if override != nil && *override > 0 {
		ttl = time.Duration(*override) * time.Second
	}

	return SessionConfig{
		Window:      window,
		MaxSessions: maxSessions,
		RedisAddr:   strings.TrimSpace(os.Getenv("SESSION_REDIS_ADDR")),
		RedisTTL:    ttl,
	}, nil
}

// RetrievalConfig 는 정책 문서 검색 설정.
type RetrievalConfig struct {
	PolicyDir    string
	TopK         int
	MinScore     float64
	ChunkSize    int
	ChunkOverlap int
}

func loadRetrievalConfig() (RetrievalConfig, error) {
	topK := 4
	if override, err := parseOptionalIntEnv("RETRIEVAL_TOP_K"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil && *override > 0 {
		topK = *override
	}

	minScore := 0.15
	if override, err := parseOptionalFloatEnv("RETRIEVAL_MIN_SCORE"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		minScore = *override
	}

	chunkSize := 500
	if override, err := parseOptionalIntEnv("RETRIEVAL_CHUNK_SIZE"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil && *override > 0 {
		chunkSize = *override
	}

	chunkOverlap := 100
	if override, err := parseOptionalIntEnv("RETRIEVAL_CHUNK_OVERLAP"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil && *override >= 0 {
		chunkOverlap = *override
	}

	if chunkOverlap >= chunkSize {
		return RetrievalConfig{}, fmt.Errorf("RETRIEVAL_CHUNK_OVERLAP (%d) must be smaller than RETRIEVAL_CHUNK_SIZE (%d)", chunkOverlap, chunkSize)
	}

	return RetrievalConfig{
		PolicyDir:    strings.TrimSpace(os.Getenv("POLICY_DIR")),
		TopK:         topK,
		MinScore:     minScore,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}, nil
}

// SpeechConfig 는 외부 STT 서비스 설정. 음성 디코딩 자체는 외부 협력자 소관.
type SpeechConfig struct {
	ASRBaseURL string
	Timeout    time.Duration
}

// Enabled 는 STT 협력자 주소가 설정되었는지 여부.
func (c SpeechConfig) Enabled() bool {
	return c.ASRBaseURL != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return SpeechConfig{
		ASRBaseURL: strings.TrimSpace(os.Getenv("SPEECH_ASR_URL")),
		Timeout:    time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrSessionIDRequired 는 빈 세션 ID 입력.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrScoreOutOfRange 는 [0,1] 범위를 벗어난 감정 점수 입력.
	// 점수는 보정(clamp)하지 않고 상태 변경 전에 거부한다.
	ErrScoreOutOfRange = errors.New("emotion score must be within [0,1]")
)

// Store 는 세션별 감정 강도 smoothing 이력을 보관한다. Append 는 점수를
// 누적하고 최근 window 개 점수의 평균을 돌려준다. 같은 세션에 대한 호출은
// 구현체가 직렬화해야 한다. moving average 는 입력 순서에 민감하다.
type Store interface {
	Append(ctx context.Context, sessionID string, score float64) (float64, error)
	Reset(ctx context.Context, sessionID string) error
}

// lastSeen 은 unix nano 원자값이다. Append 는 e.mu 만, evictOldest 는
// s.mu 만 잡은 채 접근하므로 일반 필드로 두면 경합한다.
type entry struct {
	mu       sync.Mutex
	scores   []float64
	lastSeen atomic.Int64
}

func (e *entry) append(score float64, window int) float64 {
	e.scores = append(e.scores, score)
	if len(e.scores) > window {
		e.scores = e.scores[len(e.scores)-window:]
	}

	sum := 0.0
	for _, s := range e.scores {
		sum += s
	}
	return sum / float64(len(e.scores))
}

// MemoryStore 는 프로세스 내 smoothing 저장소. 세션 엔트리는 첫 Append 때
// 생성되고 개별 뮤텍스를 가지므로 서로 다른 세션끼리는 경합하지 않는다.
// maxSessions 를 넘으면 가장 오래 사용되지 않은 세션부터 밀어낸다.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	window      int
	maxSessions int
}

// NewMemoryStore 는 window 크기(최소 1)와 세션 상한으로 저장소를 만든다.
func NewMemoryStore(window, maxSessions int) *MemoryStore {
	if window < 1 {
		window = 1
	}
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &MemoryStore{
		sessions:    make(map[string]*entry),
		window:      window,
		maxSessions: maxSessions,
	}
}

// Append 는 세션 이력에 점수를 추가하고 smoothing 된 평균을 돌려준다.
// 첫 호출이면 빈 이력을 만들기 때문에 첫 평균은 입력 점수와 같다.
func (s *MemoryStore) Append(_ context.Context, sessionID string, score float64) (float64, error) {
	if sessionID == "" {
		return 0, ErrSessionIDRequired
	}
	if score < 0 || score > 1 {
		return 0, ErrScoreOutOfRange
	}

	e := s.acquire(sessionID)
	e.lastSeen.Store(time.Now().UnixNano())

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.append(score, s.window), nil
}

// Reset 은 세션 이력을 통째로 버린다. 이후 Append 는 첫 호출처럼 동작한다.
func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Len 은 현재 보관 중인 세션 수.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) acquire(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}

	if len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}

	e = &entry{}
	e.lastSeen.Store(time.Now().UnixNano())
	s.sessions[sessionID] = e
	return e
}

// evictOldest 는 s.mu 쓰기 잠금 하에서 호출된다. 방금 acquire 된 엔트리가
// 밀려날 수도 있는데, 그 경우 해당 세션의 진행 중인 window 하나가 버려지고
// 다음 Append 가 새 이력으로 시작할 뿐이라 감수한다.
func (s *MemoryStore) evictOldest() {
	var oldestID string
	var oldest int64
	for id, e := range s.sessions {
		seen := e.lastSeen.Load()
		if oldestID == "" || seen < oldest {
			oldestID = id
			oldest = seen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

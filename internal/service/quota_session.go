package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clubvault/internal/domain"
)

// DefaultSessionIdleTTL - через сколько простоя сессия забывается
const DefaultSessionIdleTTL = 12 * time.Hour

type alertKey struct {
	orgID uuid.UUID
	level domain.QuotaAlert
}

// QuotaSession запоминает, какие предупреждения о квоте уже показаны.
// Каждый уровень показывается не более одного раза за сессию для клуба.
type QuotaSession struct {
	ID    string
	Owner string

	mu       sync.Mutex
	seen     map[alertKey]struct{}
	lastSeen time.Time
}

func newQuotaSession(id, owner string, now time.Time) *QuotaSession {
	return &QuotaSession{
		ID:       id,
		Owner:    owner,
		seen:     make(map[alertKey]struct{}),
		lastSeen: now,
	}
}

// NewQuotaSession создает сессию вне реестра
func NewQuotaSession() *QuotaSession {
	return newQuotaSession(uuid.NewString(), "", time.Now())
}

// Notice возвращает level, если он еще не показывался, и отмечает его
// показанным. Повторный вызов с тем же уровнем возвращает QuotaAlertNone.
func (s *QuotaSession) Notice(orgID uuid.UUID, level domain.QuotaAlert) domain.QuotaAlert {
	if level == domain.QuotaAlertNone {
		return domain.QuotaAlertNone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := alertKey{orgID: orgID, level: level}
	if _, ok := s.seen[key]; ok {
		return domain.QuotaAlertNone
	}
	s.seen[key] = struct{}{}
	return level
}

// Reset забывает показанные предупреждения
func (s *QuotaSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[alertKey]struct{})
}

func (s *QuotaSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *QuotaSession) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionRegistry хранит сессии в памяти процесса. Состояние сессий не
// переживает перезапуск. Сессия доступна только открывшему ее пользователю,
// для остальных ее нет.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*QuotaSession
	idleTTL  time.Duration
	now      func() time.Time
}

func NewSessionRegistry(idleTTL time.Duration) *SessionRegistry {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	return &SessionRegistry{
		sessions: make(map[string]*QuotaSession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Start открывает новую сессию пользователя owner
func (r *SessionRegistry) Start(owner string) *QuotaSession {
	now := r.now()
	session := newQuotaSession(uuid.NewString(), owner, now)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	r.sessions[session.ID] = session
	return session
}

// Get возвращает активную сессию owner и продлевает ее
func (r *SessionRegistry) Get(id, owner string) (*QuotaSession, bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)

	session, ok := r.sessions[id]
	if !ok || session.Owner != owner {
		return nil, false
	}
	session.touch(now)
	return session, true
}

// End закрывает сессию owner; вернет false, если сессии нет
func (r *SessionRegistry) End(id, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.Owner != owner {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) sweepLocked(now time.Time) {
	for id, session := range r.sessions {
		if session.idleSince(now) > r.idleTTL {
			delete(r.sessions, id)
			log.Debug().Str("session", id).Msg("[Session] dropped idle session")
		}
	}
}

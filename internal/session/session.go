// Package session asocia un petstate.Container a cada sesión de navegador.
// Cada contenedor vive mientras la sesión se use; el janitor cierra las sesiones
// inactivas.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
	"petsoft/internal/platform/logger"
)

const (
	DefaultTTL = 30 * time.Minute

	maxFlashes = 20
)

var ErrNotFound = errors.New("session not found")

// Snapshotter trae la lista de mascotas con la que se siembra una sesión nueva.
type Snapshotter interface {
	List(ctx context.Context) ([]pets.Pet, error)
}

type Config struct {
	Gateway  petstate.Gateway
	Snapshot Snapshotter
	Logger   logger.Logger

	TTL      time.Duration
	Rollback bool
}

type Session struct {
	ID    string
	State *petstate.Container

	flashes  *flashBox
	lastSeen time.Time
}

// Flashes devuelve y limpia los avisos pendientes (fallas de mutaciones).
func (s *Session) Flashes() []string {
	return s.flashes.drain()
}

type Manager struct {
	mu   sync.Mutex
	byID map[string]*Session

	gw       petstate.Gateway
	snap     Snapshotter
	log      logger.Logger
	ttl      time.Duration
	rollback bool
	now      func() time.Time
}

func NewManager(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		byID:     make(map[string]*Session),
		gw:       cfg.Gateway,
		snap:     cfg.Snapshot,
		log:      log,
		ttl:      ttl,
		rollback: cfg.Rollback,
		now:      time.Now,
	}
}

// Create abre una sesión nueva sembrada con el snapshot actual del store.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	snapshot, err := m.snap.List(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	box := &flashBox{}
	s := &Session{
		ID:      id,
		flashes: box,
		State: petstate.New(snapshot, m.gw, petstate.Options{
			Notifier: box,
			Logger:   m.log.With(map[string]any{"session": id}),
			Rollback: m.rollback,
		}),
	}

	m.mu.Lock()
	s.lastSeen = m.now()
	m.byID[id] = s
	m.mu.Unlock()

	m.log.Debug("session created", map[string]any{"session": id, "pets": len(snapshot)})
	return s, nil
}

// Get devuelve la sesión y renueva su TTL.
func (m *Manager) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Refresh reconcilia la sesión con el estado actual del store.
func (m *Manager) Refresh(ctx context.Context, s *Session) error {
	epoch := s.State.Epoch()
	snapshot, err := m.snap.List(ctx)
	if err != nil {
		return err
	}
	s.State.Reconcile(snapshot, epoch)
	return nil
}

// End cierra la sesión (equivale a salir del dashboard).
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.byID[id]
	delete(m.byID, id)
	m.mu.Unlock()

	if ok {
		s.State.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Sweep cierra las sesiones inactivas más allá del TTL. Devuelve cuántas cerró.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.byID {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(m.byID, id)
		}
	}
	m.mu.Unlock()

	// Close espera las llamadas en vuelo; fuera del lock.
	for _, s := range expired {
		s.State.Close()
	}
	if len(expired) > 0 {
		m.log.Info("sessions expired", map[string]any{"count": len(expired)})
	}
	return len(expired)
}

// Run barre sesiones cada interval hasta que ctx se cancela; al salir cierra todas.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return nil
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.byID))
	for id, s := range m.byID {
		all = append(all, s)
		delete(m.byID, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.State.Close()
	}
}

// flashBox es el Notifier de la sesión: junta avisos hasta el próximo render.
type flashBox struct {
	mu   sync.Mutex
	msgs []string
}

func (b *flashBox) Warn(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) >= maxFlashes {
		b.msgs = b.msgs[1:]
	}
	b.msgs = append(b.msgs, message)
}

func (b *flashBox) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.msgs
	b.msgs = nil
	return out
}

// Warn agrega un aviso propio del dashboard (p.ej. formulario inválido).
func (s *Session) Warn(message string) {
	s.flashes.Warn(message)
}

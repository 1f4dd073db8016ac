package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joeblew999/propmap/internal/propsym"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoAttributes is returned by sequence operations when the dataset
	// has no attributes to step through.
	ErrNoAttributes = errors.New("no attributes loaded")
)

// Session is one map view: its dataset, sequence position, rendered
// markers, legend and overlay visibility.
type Session struct {
	ID        string
	CreatedAt time.Time

	dataset *Dataset
	bus     *EventBus

	mu             sync.Mutex
	seq            *propsym.Sequence
	markers        []Marker
	legend         Legend
	overlayVisible bool
	lastSeen       time.Time
}

func newSession(ds *Dataset, bus *EventBus) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		dataset:   ds,
		bus:       bus,
		lastSeen:  now,
	}
	if ds.Steps > 0 {
		// Steps > 0 is the only precondition NewSequence checks.
		s.seq, _ = propsym.NewSequence(ds.Steps)
		attr := ds.Attributes[0]
		s.markers = ds.RenderMarkers(attr)
		s.legend = ds.BuildLegend(attr)
	} else {
		s.markers = []Marker{}
		s.legend = Legend{Circles: []LegendCircle{}}
	}
	return s
}

// Dataset returns the session's dataset.
func (s *Session) Dataset() *Dataset {
	return s.dataset
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.stateLocked()
}

// Markers returns a copy of the rendered markers.
func (s *Session) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return append([]Marker(nil), s.markers...)
}

// Legend returns the current legend.
func (s *Session) Legend() Legend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.legend
}

// Forward advances the sequence and re-renders.
func (s *Session) Forward() (SessionState, error) {
	return s.transition(func(seq *propsym.Sequence) error {
		seq.Forward()
		return nil
	})
}

// Reverse steps the sequence back and re-renders.
func (s *Session) Reverse() (SessionState, error) {
	return s.transition(func(seq *propsym.Sequence) error {
		seq.Reverse()
		return nil
	})
}

// Slide jumps to index and re-renders.
func (s *Session) Slide(index int) (SessionState, error) {
	return s.transition(func(seq *propsym.Sequence) error {
		_, err := seq.Slide(index)
		return err
	})
}

// SetOverlay shows or hides the boundary overlay.
func (s *Session) SetOverlay(visible bool) SessionState {
	s.mu.Lock()
	s.overlayVisible = visible
	s.lastSeen = time.Now()
	state := s.stateLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Resource: "sessions", Action: "overlay", ID: s.ID})
	return state
}

func (s *Session) transition(step func(*propsym.Sequence) error) (SessionState, error) {
	s.mu.Lock()
	if s.seq == nil {
		s.mu.Unlock()
		return SessionState{}, ErrNoAttributes
	}
	if err := step(s.seq); err != nil {
		s.mu.Unlock()
		return SessionState{}, err
	}
	s.lastSeen = time.Now()

	attr := s.dataset.Attributes[s.seq.Index()]
	s.dataset.UpdateMarkers(s.markers, attr)
	s.legend = s.dataset.BuildLegend(attr)
	state := s.stateLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Resource: "sessions", Action: "sequence", ID: s.ID})
	return state, nil
}

func (s *Session) stateLocked() SessionState {
	ds := s.dataset
	state := SessionState{
		ID:          s.ID,
		Preset:      ds.Preset.Name,
		Title:       ds.Preset.Title,
		View:        ds.Preset.View,
		Tiles:       ds.Preset.Tiles,
		Attributes:  append([]string{}, ds.Attributes...),
		Steps:       ds.Steps,
		SymbolStyle: ds.Preset.Symbol,
		Markers:     append([]Marker{}, s.markers...),
		Legend:      s.legend,
		Overlay: OverlayState{
			Label:     ds.Preset.Overlay.Label,
			Available: ds.Overlay != nil,
			Visible:   s.overlayVisible && ds.Overlay != nil,
			Style:     ds.Preset.Overlay.Style,
		},
		Status: ds.Status,
	}
	if s.seq != nil {
		state.Index = s.seq.Index()
		state.Attribute = ds.Attributes[state.Index]
		state.Year = propsym.Year(state.Attribute)
	}
	return state
}

func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(t)
}

// SessionService creates and tracks map sessions.
type SessionService struct {
	catalog  *Catalog
	bus      *EventBus
	log      *zap.SugaredLogger
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a new session service.
func NewSessionService(catalog *Catalog, bus *EventBus, log *zap.SugaredLogger) *SessionService {
	return &SessionService{
		catalog:  catalog,
		bus:      bus,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Bus returns the event bus sessions publish to.
func (s *SessionService) Bus() *EventBus {
	return s.bus
}

// Catalog returns the dataset catalog.
func (s *SessionService) Catalog() *Catalog {
	return s.catalog
}

// Create bootstraps a session for preset with the first attribute rendered.
func (s *SessionService) Create(ctx context.Context, preset string) (*Session, error) {
	ds, err := s.catalog.Dataset(ctx, preset)
	if err != nil {
		return nil, err
	}

	sess := newSession(ds, s.bus)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Debugw("session created", "id", sess.ID, "preset", preset)
	return sess, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.bus.Publish(Event{Resource: "sessions", Action: "deleted", ID: id})
	return nil
}

// Len returns the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *SessionService) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []string
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			stale = append(stale, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.bus.Publish(Event{Resource: "sessions", Action: "deleted", ID: id})
	}
	if len(stale) > 0 {
		s.log.Infow("pruned idle sessions", "count", len(stale))
	}
	return len(stale)
}

// RunPruner prunes idle sessions every interval until ctx is done.
func (s *SessionService) RunPruner(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(maxIdle)
		}
	}
}

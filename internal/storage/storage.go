package storage

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
)

// Session owns the mutable state of one editing session
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.RWMutex
	images     []models.SourceImage
	results    map[string]models.ProcessedResult
	generated  []models.GeneratedResult
	selection  map[string]struct{}
	processing map[string]bool
	batches    int
	errMsg     string
}

// NewSession returns an empty session
func NewSession() *Session {
	return &Session{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now(),
		results:    make(map[string]models.ProcessedResult),
		selection:  make(map[string]struct{}),
		processing: make(map[string]bool),
	}
}

// Snapshot is a point-in-time copy of a session
type Snapshot struct {
	ID         string                   `json:"id"`
	CreatedAt  time.Time                `json:"created_at"`
	Images     []models.SourceImage     `json:"images"`
	Results    []models.ProcessedResult `json:"results"`
	Generated  []models.GeneratedResult `json:"generated"`
	Selection  []string                 `json:"selection"`
	Processing []string                 `json:"processing"`
	Busy       bool                     `json:"busy"`
	Error      string                   `json:"error,omitempty"`
}

// AddImages appends to the image list in order
func (s *Session) AddImages(images ...models.SourceImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, images...)
}

// Images returns the ingested images in ingestion order
func (s *Session) Images() []models.SourceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SourceImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Session) Image(id string) (models.SourceImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, img := range s.images {
		if img.ID == id {
			return img, true
		}
	}
	return models.SourceImage{}, false
}

// RemoveImage deletes the image along with its result, selection and flag
func (s *Session) RemoveImage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, img := range s.images {
		if img.ID != id {
			continue
		}
		s.images = append(s.images[:i], s.images[i+1:]...)
		delete(s.results, id)
		delete(s.selection, id)
		delete(s.processing, id)
		return true
	}
	return false
}

// ToggleSelection flips membership of id and reports the new state
func (s *Session) ToggleSelection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
		return false
	}
	s.selection[id] = struct{}{}
	return true
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		s.selection[img.ID] = struct{}{}
	}
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{})
}

// Selection returns selected ids in image order. Ids that no longer name a
// loaded image are kept and appended in sorted order.
func (s *Session) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectionLocked()
}

func (s *Session) selectionLocked() []string {
	out := make([]string, 0, len(s.selection))
	seen := make(map[string]bool, len(s.selection))
	for _, img := range s.images {
		if _, ok := s.selection[img.ID]; ok {
			out = append(out, img.ID)
			seen[img.ID] = true
		}
	}
	var stale []string
	for id := range s.selection {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return append(out, stale...)
}

// PutResult inserts or replaces the result for its original image. It
// reports false and stores nothing when that image is no longer loaded.
func (s *Session) PutResult(result models.ProcessedResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.images, func(img models.SourceImage) bool { return img.ID == result.OriginalID }) {
		return false
	}
	s.results[result.OriginalID] = result
	return true
}

func (s *Session) Result(id string) (models.ProcessedResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// Results returns processed results in image order
func (s *Session) Results() []models.ProcessedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resultsLocked()
}

func (s *Session) resultsLocked() []models.ProcessedResult {
	out := make([]models.ProcessedResult, 0, len(s.results))
	for _, img := range s.images {
		if r, ok := s.results[img.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// AddGenerated prepends so the newest result comes first
func (s *Session) AddGenerated(result models.GeneratedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = append([]models.GeneratedResult{result}, s.generated...)
}

func (s *Session) Generated() []models.GeneratedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GeneratedResult, len(s.generated))
	copy(out, s.generated)
	return out
}

func (s *Session) SetProcessing(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.processing[id] = true
	}
}

func (s *Session) ClearProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processing, id)
}

func (s *Session) Processing(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing[id]
}

// BeginBatch marks a batch (or generation) as in progress
func (s *Session) BeginBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
}

// EndBatch ends one in-progress batch, optionally clearing the selection
func (s *Session) EndBatch(clearSelection bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batches > 0 {
		s.batches--
	}
	if clearSelection {
		s.selection = make(map[string]struct{})
	}
}

// Busy reports whether any batch is in progress
func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches > 0
}

// SetError replaces the single user-visible error message. An empty message
// clears it.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

func (s *Session) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		Images:     make([]models.SourceImage, len(s.images)),
		Results:    s.resultsLocked(),
		Generated:  make([]models.GeneratedResult, len(s.generated)),
		Selection:  s.selectionLocked(),
		Processing: make([]string, 0, len(s.processing)),
		Busy:       s.batches > 0,
		Error:      s.errMsg,
	}
	copy(snap.Images, s.images)
	copy(snap.Generated, s.generated)
	for id, on := range s.processing {
		if on {
			snap.Processing = append(snap.Processing, id)
		}
	}
	sort.Strings(snap.Processing)
	return snap
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session
func (s *SessionStore) Create() *Session {
	session := NewSession()
	s.Set(session.ID, session)
	return session
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

func (s *SessionStore) GetAll() map[string]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

package web

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/google/uuid"
)

type tokenInfo struct {
	address   string
	expiresAt time.Time
}

// Store keeps workflows and issued tokens in memory. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]models.WorkflowJSON
	order     []string
	tokens    map[string]tokenInfo
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		workflows: make(map[string]models.WorkflowJSON),
		tokens:    make(map[string]tokenInfo),
		now:       time.Now,
	}
}

func cloneWorkflow(w models.WorkflowJSON) models.WorkflowJSON {
	w.Nodes = slices.Clone(w.Nodes)
	for i := range w.Nodes {
		w.Nodes[i].Parameters = maps.Clone(w.Nodes[i].Parameters)
	}

	w.Edges = slices.Clone(w.Edges)

	if w.Settings != nil {
		settings := *w.Settings
		w.Settings = &settings
	}

	return w
}

func assignEdgeIDs(edges []models.EdgeJSON) {
	for i := range edges {
		if edges[i].ID == nil || *edges[i].ID == "" {
			id := uuid.NewString()
			edges[i].ID = &id
		}
	}
}

// CreateWorkflow stores w under a new id in the created state.
func (s *Store) CreateWorkflow(w models.WorkflowJSON) models.WorkflowJSON {
	w = cloneWorkflow(w)
	w.ID = uuid.NewString()
	w.State = models.WorkflowStateCreated
	assignEdgeIDs(w.Edges)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[w.ID] = w
	s.order = append(s.order, w.ID)

	return cloneWorkflow(w)
}

func (s *Store) Workflow(id string) (models.WorkflowJSON, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return models.WorkflowJSON{}, ErrWorkflowNotFound
	}

	return cloneWorkflow(w), nil
}

// UpdateWorkflow replaces the graph of workflow id, keeping its id and state.
func (s *Store) UpdateWorkflow(id string, update models.WorkflowJSON) (models.WorkflowJSON, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.workflows[id]
	if !ok {
		return models.WorkflowJSON{}, ErrWorkflowNotFound
	}

	update = cloneWorkflow(update)
	update.ID = current.ID
	update.State = current.State
	assignEdgeIDs(update.Edges)

	s.workflows[id] = update

	return cloneWorkflow(update), nil
}

func (s *Store) SetState(id, state string) (models.WorkflowJSON, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return models.WorkflowJSON{}, ErrWorkflowNotFound
	}

	w.State = state
	s.workflows[id] = w

	return cloneWorkflow(w), nil
}

func (s *Store) DeleteWorkflow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return ErrWorkflowNotFound
	}

	delete(s.workflows, id)
	s.order = slices.DeleteFunc(s.order, func(candidate string) bool { return candidate == id })

	return nil
}

// DeleteEdge removes the edge with id from whichever workflow holds it.
func (s *Store) DeleteEdge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.workflows {
		idx := slices.IndexFunc(w.Edges, func(e models.EdgeJSON) bool {
			return e.ID != nil && *e.ID == id
		})
		if idx < 0 {
			continue
		}

		w.Edges = slices.Delete(slices.Clone(w.Edges), idx, idx+1)
		s.workflows[key] = w

		return nil
	}

	return ErrEdgeNotFound
}

// List returns workflows in creation order, optionally filtered by state.
func (s *Store) List(offset, limit int, state string) ([]models.WorkflowJSON, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.WorkflowJSON, 0, len(s.order))

	for _, id := range s.order {
		w := s.workflows[id]
		if state != "" && w.State != state {
			continue
		}

		matched = append(matched, w)
	}

	total := len(matched)
	if offset >= total {
		return []models.WorkflowJSON{}, total
	}

	end := min(offset+limit, total)
	page := make([]models.WorkflowJSON, 0, end-offset)

	for _, w := range matched[offset:end] {
		page = append(page, cloneWorkflow(w))
	}

	return page, total
}

// IssueToken creates a bearer token bound to address.
func (s *Store) IssueToken(address string, ttl time.Duration) (string, time.Time) {
	token := uuid.NewString()
	expiresAt := s.now().Add(ttl).UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = tokenInfo{address: address, expiresAt: expiresAt}

	return token, expiresAt
}

// TokenAddress returns the address a live token was issued for.
func (s *Store) TokenAddress(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.tokens[token]
	if !ok || s.now().After(info.expiresAt) {
		return "", ErrUnknownToken
	}

	return info.address, nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/internal/repository"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

// memoryStore mirrors the relational store in memory: sessions, users and one pair set.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	users    map[string]models.Trainer
	pairs    map[string]map[string]bool
	seq      int
	err      error

	// afterList runs once ListByTrainer has read its rows and released the lock.
	afterList func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: map[string]models.Session{},
		users:    map[string]models.Trainer{},
		pairs:    map[string]map[string]bool{},
	}
}

func (m *memoryStore) addUser(id, first, last string) {
	m.users[id] = models.Trainer{ID: id, FirstName: first, LastName: last, Email: id + "@example.com"}
}

func (m *memoryStore) withTrainers(s models.Session) models.Session {
	s.Trainers = []models.Trainer{}
	ids := make([]string, 0, len(m.pairs[s.ID]))
	for id := range m.pairs[s.ID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.Trainers = append(s.Trainers, m.users[id])
	}
	return s
}

func (m *memoryStore) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.seq++
	session.ID = fmt.Sprintf("s-%d", m.seq)
	session.Trainers = []models.Trainer{}
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.ID] = *session
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	s = m.withTrainers(s)
	return &s, nil
}

func (m *memoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *memoryStore) List(ctx context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []models.Session{}
	for _, s := range m.sessions {
		out = append(out, m.withTrainers(s))
	}
	return out, nil
}

func (m *memoryStore) ListByTrainer(ctx context.Context, trainerID string) ([]models.Session, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	out := []models.Session{}
	for id, set := range m.pairs {
		if set[trainerID] {
			out = append(out, m.withTrainers(m.sessions[id]))
		}
	}
	hook := m.afterList
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryStore) Update(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	current, ok := m.sessions[session.ID]
	if !ok {
		return sql.ErrNoRows
	}
	session.CreatedAt = current.CreatedAt
	session.UpdatedAt = time.Now().UTC()
	m.sessions[session.ID] = *session
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.sessions[id]; !ok {
		return nil, sql.ErrNoRows
	}
	removed := []string{}
	for trainerID := range m.pairs[id] {
		removed = append(removed, trainerID)
	}
	sort.Strings(removed)
	delete(m.pairs, id)
	delete(m.sessions, id)
	return removed, nil
}

func (m *memoryStore) resolve(sessionID, trainerID string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return repository.ErrSessionNotFound
	}
	if _, ok := m.users[trainerID]; !ok {
		return repository.ErrUserNotFound
	}
	return nil
}

func (m *memoryStore) Assign(ctx context.Context, sessionID, trainerID string) (*models.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolve(sessionID, trainerID); err != nil {
		return nil, false, err
	}
	if m.pairs[sessionID] == nil {
		m.pairs[sessionID] = map[string]bool{}
	}
	added := !m.pairs[sessionID][trainerID]
	m.pairs[sessionID][trainerID] = true
	s := m.withTrainers(m.sessions[sessionID])
	return &s, added, nil
}

func (m *memoryStore) Remove(ctx context.Context, sessionID, trainerID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolve(sessionID, trainerID); err != nil {
		return nil, err
	}
	if !m.pairs[sessionID][trainerID] {
		return nil, repository.ErrTrainerNotAssigned
	}
	delete(m.pairs[sessionID], trainerID)
	s := m.withTrainers(m.sessions[sessionID])
	return &s, nil
}

func (m *memoryStore) Clear(ctx context.Context, sessionID string) (*models.Session, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, nil, repository.ErrSessionNotFound
	}
	removed := []string{}
	for id := range m.pairs[sessionID] {
		removed = append(removed, id)
	}
	delete(m.pairs, sessionID)
	s := m.withTrainers(m.sessions[sessionID])
	return &s, removed, nil
}

func (m *memoryStore) IsMember(ctx context.Context, sessionID, trainerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.pairs[sessionID][trainerID], nil
}

// memoryCache is a CacheRepository backed by a map of JSON payloads.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	deleted  []string
	versions map[string]int64
	getErr   error
	setErr   error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		delete(c.entries, key)
	}
	c.deleted = append(c.deleted, pattern)
	return nil
}

func (c *memoryCache) Versions(ctx context.Context, keys ...string) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(keys))
	for i, key := range keys {
		out[i] = c.versions[key]
	}
	return out, nil
}

func (c *memoryCache) Bump(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.versions[key]++
	}
	return nil
}

func (c *memoryCache) SetIfVersions(ctx context.Context, key string, value interface{}, ttl time.Duration, guards map[string]int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return false, c.setErr
	}
	for guard, version := range guards {
		if c.versions[guard] != version {
			return false, nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.entries[key] = raw
	return true, nil
}

type recorderStub struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorderStub) RecordAssignment(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[operation+":"+outcome]++
}

func (r *recorderStub) count(operation, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[operation+":"+outcome]
}

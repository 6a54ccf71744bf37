package remote

import (
	"context"
	"sync"
)

// Memory is an in-memory Store. It backs the engine and controller tests
// and the CLI's offline mode, and counts writes so tests can assert that a
// sync pass produced (or avoided) them. RecordErrs and ListErr inject
// failures for resilience tests.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]CollectionRow // userID -> id -> row
	bookmarks   map[string]map[string]BookmarkRow

	// ListErr, when set, fails every list call (simulates an unreachable
	// remote before any record is processed).
	ListErr error

	// RecordErrs fails inserts and updates for specific record ids.
	RecordErrs map[string]error

	InsertCalls int
	UpdateCalls int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory remote store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]CollectionRow),
		bookmarks:   make(map[string]map[string]BookmarkRow),
	}
}

// ListCollections implements Store.
func (m *Memory) ListCollections(ctx context.Context, userID string) ([]CollectionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	rows := make([]CollectionRow, 0, len(m.collections[userID]))
	for _, row := range m.collections[userID] {
		rows = append(rows, row)
	}
	return rows, nil
}

// GetCollection implements Store.
func (m *Memory) GetCollection(ctx context.Context, userID, id string) (*CollectionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.collections[userID][id]
	if !ok {
		return nil, ErrRowNotFound
	}
	return &row, nil
}

// InsertCollection implements Store.
func (m *Memory) InsertCollection(ctx context.Context, row CollectionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RecordErrs[row.ID]; err != nil {
		return err
	}

	if m.collections[row.UserID] == nil {
		m.collections[row.UserID] = make(map[string]CollectionRow)
	}
	m.collections[row.UserID][row.ID] = row
	m.InsertCalls++
	return nil
}

// UpdateCollection implements Store.
func (m *Memory) UpdateCollection(ctx context.Context, row CollectionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RecordErrs[row.ID]; err != nil {
		return err
	}

	if _, ok := m.collections[row.UserID][row.ID]; !ok {
		return ErrRowNotFound
	}
	m.collections[row.UserID][row.ID] = row
	m.UpdateCalls++
	return nil
}

// ListBookmarks implements Store.
func (m *Memory) ListBookmarks(ctx context.Context, userID string) ([]BookmarkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	rows := make([]BookmarkRow, 0, len(m.bookmarks[userID]))
	for _, row := range m.bookmarks[userID] {
		rows = append(rows, row)
	}
	return rows, nil
}

// GetBookmark implements Store.
func (m *Memory) GetBookmark(ctx context.Context, userID, id string) (*BookmarkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.bookmarks[userID][id]
	if !ok {
		return nil, ErrRowNotFound
	}
	return &row, nil
}

// InsertBookmark implements Store.
func (m *Memory) InsertBookmark(ctx context.Context, row BookmarkRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RecordErrs[row.ID]; err != nil {
		return err
	}

	if m.bookmarks[row.UserID] == nil {
		m.bookmarks[row.UserID] = make(map[string]BookmarkRow)
	}
	m.bookmarks[row.UserID][row.ID] = row
	m.InsertCalls++
	return nil
}

// UpdateBookmark implements Store.
func (m *Memory) UpdateBookmark(ctx context.Context, row BookmarkRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RecordErrs[row.ID]; err != nil {
		return err
	}

	if _, ok := m.bookmarks[row.UserID][row.ID]; !ok {
		return ErrRowNotFound
	}
	m.bookmarks[row.UserID][row.ID] = row
	m.UpdateCalls++
	return nil
}

// SeedCollection places a row directly in the remote store, bypassing
// counters. Test helper.
func (m *Memory) SeedCollection(row CollectionRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[row.UserID] == nil {
		m.collections[row.UserID] = make(map[string]CollectionRow)
	}
	m.collections[row.UserID][row.ID] = row
}

// SeedBookmark places a row directly in the remote store, bypassing
// counters. Test helper.
func (m *Memory) SeedBookmark(row BookmarkRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookmarks[row.UserID] == nil {
		m.bookmarks[row.UserID] = make(map[string]BookmarkRow)
	}
	m.bookmarks[row.UserID][row.ID] = row
}

// ResetCounters zeroes the write counters.
func (m *Memory) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls = 0
	m.UpdateCalls = 0
}

// WriteCount returns inserts + updates since the last reset.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InsertCalls + m.UpdateCalls
}

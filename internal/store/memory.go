package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guidevault/guidevault/internal/models"
)

// Memory is an in-memory Store with the same upsert-by-natural-key semantics
// as Postgres. It backs tests and keeps the ingest pipeline runnable without
// a database.
type Memory struct {
	mu sync.Mutex

	nextChannel  int64
	nextCategory int64
	nextProgram  int64
	nextArchived int64

	channels   map[int64]*models.Channel
	categories map[int64]*models.Category
	programs   map[int64]*models.Program
	archived   map[int64]*models.ArchivedProgram // keyed by program id
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		channels:   make(map[int64]*models.Channel),
		categories: make(map[int64]*models.Category),
		programs:   make(map[int64]*models.Program),
		archived:   make(map[int64]*models.ArchivedProgram),
	}
}

func (m *Memory) UpsertChannel(_ context.Context, ch *models.Channel) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.channels {
		if existing.XMLURL == ch.XMLURL {
			existing.Provider = ch.Provider
			existing.Title = ch.Title
			existing.Logo = ch.Logo
			return id, nil
		}
	}
	m.nextChannel++
	cp := *ch
	cp.ID = m.nextChannel
	m.channels[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) GetChannelByID(_ context.Context, channelID int64) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (m *Memory) ListChannels(_ context.Context, filter ChannelFilter) ([]models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Channel
	for _, ch := range m.channels {
		if filter.Provider != "" && ch.Provider != filter.Provider {
			continue
		}
		if filter.Archived != nil && ch.Archived != *filter.Archived {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, ch.ID) {
			continue
		}
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SetChannelArchived(_ context.Context, channelID int64, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	ch.Archived = archived
	return nil
}

func (m *Memory) UpdateChannelPlayback(_ context.Context, channelID int64, url string, settings models.ChannelSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	ch.URL = url
	ch.Settings = settings
	return nil
}

func (m *Memory) GetOrCreateCategory(_ context.Context, title string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.categories {
		if c.Title == title {
			return id, nil
		}
	}
	m.nextCategory++
	m.categories[m.nextCategory] = &models.Category{ID: m.nextCategory, Title: title}
	return m.nextCategory, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *Memory) UpsertPrograms(_ context.Context, programs []*models.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range programs {
		m.upsertProgramLocked(pr)
	}
	return nil
}

func (m *Memory) upsertProgramLocked(pr *models.Program) {
	for id, existing := range m.programs {
		if existing.ChannelID == pr.ChannelID && existing.StartAt.Equal(pr.StartAt) {
			cp := *pr
			cp.ID = id
			m.programs[id] = &cp
			return
		}
	}
	m.nextProgram++
	cp := *pr
	cp.ID = m.nextProgram
	m.programs[cp.ID] = &cp
}

func (m *Memory) ListPrograms(_ context.Context, filter ProgramFilter) ([]models.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Program
	for _, pr := range m.programs {
		if pr.StartAt.Before(filter.From) || pr.StartAt.After(filter.To) {
			continue
		}
		if filter.ChannelID != nil && pr.ChannelID != *filter.ChannelID {
			continue
		}
		if filter.Provider != "" {
			ch, ok := m.channels[pr.ChannelID]
			if !ok || ch.Provider != filter.Provider {
				continue
			}
		}
		if len(filter.CategoryIDs) > 0 {
			if pr.CategoryID == nil || !containsID(filter.CategoryIDs, *pr.CategoryID) {
				continue
			}
		}
		out = append(out, m.joinProgramLocked(pr))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetProgramByID(_ context.Context, programID int64) (*models.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.programs[programID]
	if !ok {
		return nil, ErrNotFound
	}
	joined := m.joinProgramLocked(pr)
	return &joined, nil
}

func (m *Memory) joinProgramLocked(pr *models.Program) models.Program {
	cp := *pr
	if cp.CategoryID != nil {
		if c, ok := m.categories[*cp.CategoryID]; ok {
			title := c.Title
			cp.CategoryTitle = &title
		}
	}
	if ap, ok := m.archived[cp.ID]; ok {
		apCopy := *ap
		cp.Archived = &apCopy
	}
	return cp
}

func (m *Memory) GetArchivedProgram(_ context.Context, programID int64) (*models.ArchivedProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ap, ok := m.archived[programID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ap
	return &cp, nil
}

func (m *Memory) UpsertArchivedProgram(_ context.Context, ap *models.ArchivedProgram) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.archived[ap.ProgramID]; ok {
		existing.Path = ap.Path
		existing.Status = ap.Status
		existing.UpdatedAt = &now
		return existing.ID, nil
	}
	m.nextArchived++
	cp := *ap
	cp.ID = m.nextArchived
	cp.UpdatedAt = &now
	m.archived[cp.ProgramID] = &cp
	return cp.ID, nil
}

func (m *Memory) ListArchivedPrograms(_ context.Context, activeOnly bool) ([]models.ArchivedProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ArchivedProgram
	for _, ap := range m.archived {
		if activeOnly && !ap.Status {
			continue
		}
		out = append(out, *ap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountChannels reports how many channels exist; used by tests asserting
// ingest idempotence.
func (m *Memory) CountChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// CountPrograms reports how many programs exist.
func (m *Memory) CountPrograms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.programs)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package db

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// MemoryClient is the default in-process store used when DATABASE_URL is empty.
type MemoryClient struct {
	mu    sync.RWMutex
	users map[string]*models.User
	logs  []models.UsageLog
	docs  []models.Document
	now   func() time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{users: map[string]*models.User{}, now: time.Now}
}

var _ core.DbClient = (*MemoryClient)(nil)

func (c *MemoryClient) Close() error { return nil }

func (c *MemoryClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if strings.EqualFold(u.Email, user.Email) {
			return core.ConflictError("email already registered", nil)
		}
	}
	now := c.now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	c.users[user.ID] = &cp
	return nil
}

func (c *MemoryClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *MemoryClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (c *MemoryClient) ListUsers(ctx context.Context) ([]models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b models.User) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.Email, b.Email)
	})
	return out, nil
}

func (c *MemoryClient) withUser(id string, fn func(u *models.User)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok {
		return core.NotFoundError("user not found", nil)
	}
	fn(u)
	u.UpdatedAt = c.now()
	return nil
}

func (c *MemoryClient) UpdateTokenCap(ctx context.Context, id string, tokenCap int64) error {
	return c.withUser(id, func(u *models.User) { u.TokenCap = tokenCap })
}

func (c *MemoryClient) ResetUsage(ctx context.Context, id string) error {
	return c.withUser(id, func(u *models.User) { u.TokensUsed = 0 })
}

func (c *MemoryClient) DeleteUser(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.users[id]; !ok {
		return core.NotFoundError("user not found", nil)
	}
	delete(c.users, id)
	c.logs = slices.DeleteFunc(c.logs, func(l models.UsageLog) bool { return l.UserID == id })
	c.docs = slices.DeleteFunc(c.docs, func(d models.Document) bool { return d.UserID == id })
	return nil
}

func (c *MemoryClient) InsertUsageLog(ctx context.Context, entry *models.UsageLog) error {
	if entry == nil {
		return errors.New("nil usage log")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[entry.UserID]
	if !ok {
		return core.NotFoundError("user not found", nil)
	}
	entry.CreatedAt = c.now()
	u.TokensUsed += entry.PromptTokens + entry.ResponseTokens
	u.UpdatedAt = entry.CreatedAt
	c.logs = append(c.logs, *entry)
	return nil
}

// ListUsageLogs returns the newest logs first; an empty userID lists every user.
func (c *MemoryClient) ListUsageLogs(ctx context.Context, userID string) ([]models.UsageLog, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.UsageLog
	for i := len(c.logs) - 1; i >= 0; i-- {
		if userID == "" || c.logs[i].UserID == userID {
			out = append(out, c.logs[i])
		}
	}
	return out, nil
}

func (c *MemoryClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc.CreatedAt = c.now()
	c.docs = append(c.docs, *doc)
	return nil
}

func (c *MemoryClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Document
	for i := len(c.docs) - 1; i >= 0; i-- {
		if c.docs[i].UserID == userID {
			out = append(out, c.docs[i])
		}
	}
	return out, nil
}

func (c *MemoryClient) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *MemoryClient) DeleteDocument(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = slices.DeleteFunc(c.docs, func(d models.Document) bool { return d.ID == id })
	return nil
}

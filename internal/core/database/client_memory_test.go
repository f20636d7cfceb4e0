package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func TestMemoryClient_Users(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	u := &models.User{ID: "u1", FirstName: "Ada", Email: "ada@example.com", Role: models.RoleUser, TokenCap: 1000}
	require.NoError(t, c.CreateUser(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	err := c.CreateUser(ctx, &models.User{ID: "u2", Email: "ADA@example.com"})
	assert.True(t, core.IsType(err, core.ErrorTypeConflict))

	got, err := c.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)

	missing, err := c.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, c.UpdateTokenCap(ctx, "u1", 5))
	got, _ = c.GetUserByID(ctx, "u1")
	assert.Equal(t, int64(5), got.TokenCap)

	assert.True(t, core.IsType(c.UpdateTokenCap(ctx, "nope", 1), core.ErrorTypeNotFound))
}

func TestMemoryClient_UsageLogs(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.CreateUser(ctx, &models.User{ID: "u1", Email: "a@x"}))
	require.NoError(t, c.CreateUser(ctx, &models.User{ID: "u2", Email: "b@x"}))

	require.NoError(t, c.InsertUsageLog(ctx, &models.UsageLog{ID: "l1", UserID: "u1", ToolName: "asset-extraction", PromptTokens: 100, ResponseTokens: 20}))
	require.NoError(t, c.InsertUsageLog(ctx, &models.UsageLog{ID: "l2", UserID: "u2", ToolName: "region-selection", PromptTokens: 10, ResponseTokens: 5}))
	require.NoError(t, c.InsertUsageLog(ctx, &models.UsageLog{ID: "l3", UserID: "u1", ToolName: "regenerate-alt-text", PromptTokens: 1, ResponseTokens: 1}))

	u, _ := c.GetUserByID(ctx, "u1")
	assert.Equal(t, int64(122), u.TokensUsed)

	logs, err := c.ListUsageLogs(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "l3", logs[0].ID)

	all, _ := c.ListUsageLogs(ctx, "")
	assert.Len(t, all, 3)

	err = c.InsertUsageLog(ctx, &models.UsageLog{ID: "l4", UserID: "ghost"})
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))

	require.NoError(t, c.ResetUsage(ctx, "u1"))
	u, _ = c.GetUserByID(ctx, "u1")
	assert.Zero(t, u.TokensUsed)

	require.NoError(t, c.DeleteUser(ctx, "u1"))
	all, _ = c.ListUsageLogs(ctx, "")
	assert.Len(t, all, 1)
	assert.True(t, core.IsType(c.DeleteUser(ctx, "u1"), core.ErrorTypeNotFound))
}

func TestMemoryClient_Documents(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.CreateDocument(ctx, &models.Document{ID: "d1", UserID: "u1", FileName: "a.pdf"}))
	require.NoError(t, c.CreateDocument(ctx, &models.Document{ID: "d2", UserID: "u1", FileName: "b.pdf"}))
	require.NoError(t, c.CreateDocument(ctx, &models.Document{ID: "d3", UserID: "u2", FileName: "c.pdf"}))

	docs, err := c.ListDocumentsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d2", docs[0].ID)

	d, err := c.GetDocument(ctx, "d3")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "u2", d.UserID)

	require.NoError(t, c.DeleteDocument(ctx, "d1"))
	d, err = c.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

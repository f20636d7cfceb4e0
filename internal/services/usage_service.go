package services

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Token ranges reported per tool invocation. The metadata service does not
// bill per user, so usage is an estimate drawn from these bounds.
const (
	minPromptTokens   = 500
	maxPromptTokens   = 2000
	minResponseTokens = 100
	maxResponseTokens = 600
)

// UsageService gates work on a user's token budget and records consumption.
type UsageService struct {
	db   core.DbClient
	draw func(lo, hi int64) int64
	log  zerolog.Logger
}

var _ core.UsageAccountant = (*UsageService)(nil)

func NewUsageService(db core.DbClient, log zerolog.Logger) *UsageService {
	return &UsageService{
		db:   db,
		draw: func(lo, hi int64) int64 { return lo + rand.Int64N(hi-lo+1) },
		log:  log.With().Str("component", "usage_service").Logger(),
	}
}

func (s *UsageService) user(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, core.NotFoundError("user not found", nil)
	}
	return u, nil
}

func (s *UsageService) CheckBudget(ctx context.Context, userID string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if u.BudgetExhausted() {
		return core.BudgetExceededError(
			fmt.Sprintf("token budget exhausted (%d of %d used)", u.TokensUsed, u.TokenCap), nil)
	}
	return nil
}

// RecordUsage logs one tool invocation and adds its tokens to the user's total.
func (s *UsageService) RecordUsage(ctx context.Context, userID, toolName string) (models.TokenUsage, error) {
	usage := models.TokenUsage{
		PromptTokens:   s.draw(minPromptTokens, maxPromptTokens),
		ResponseTokens: s.draw(minResponseTokens, maxResponseTokens),
	}
	entry := &models.UsageLog{
		ID:             uuid.NewString(),
		UserID:         userID,
		ToolName:       toolName,
		PromptTokens:   usage.PromptTokens,
		ResponseTokens: usage.ResponseTokens,
	}
	if err := s.db.InsertUsageLog(ctx, entry); err != nil {
		return models.TokenUsage{}, fmt.Errorf("record usage: %w", err)
	}
	s.log.Debug().
		Str("user_id", userID).
		Str("tool", toolName).
		Int64("tokens", usage.Total()).
		Msg("usage recorded")
	return usage, nil
}

// UsageSummary is a user's budget position.
type UsageSummary struct {
	TokenCap   int64 `json:"token_cap"`
	TokensUsed int64 `json:"tokens_used"`
	Remaining  int64 `json:"remaining"`
}

func (s *UsageService) Summary(ctx context.Context, userID string) (UsageSummary, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return UsageSummary{}, err
	}
	return UsageSummary{
		TokenCap:   u.TokenCap,
		TokensUsed: u.TokensUsed,
		Remaining:  max(u.TokenCap-u.TokensUsed, 0),
	}, nil
}

// Logs lists usage logs, newest first; an empty userID lists every user.
func (s *UsageService) Logs(ctx context.Context, userID string) ([]models.UsageLog, error) {
	return s.db.ListUsageLogs(ctx, userID)
}

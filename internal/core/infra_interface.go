package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Alttexta/internal/models"
)

// DbClient defines all persistence operations the user and usage services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateTokenCap(ctx context.Context, id string, tokenCap int64) error
	ResetUsage(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	// GetDocument returns nil, nil when the document does not exist.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// InsertUsageLog stores the log row and adds its tokens to the user's running total.
	InsertUsageLog(ctx context.Context, entry *models.UsageLog) error
	ListUsageLogs(ctx context.Context, userID string) ([]models.UsageLog, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// UsageAccountant is the token budget gate and consumption hook.
type UsageAccountant interface {
	CheckBudget(ctx context.Context, userID string) error
	RecordUsage(ctx context.Context, userID, toolName string) (models.TokenUsage, error)
}

// Tool names recorded against a user's usage.
const (
	ToolAssetExtraction    = "asset-extraction"
	ToolDocumentExtraction = "document-extraction"
	ToolRegionSelection    = "region-selection"
	ToolRegenerateAltText  = "regenerate-alt-text"
)

package models

import (
	"time"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         string    `db:"role" json:"role"`
	TokenCap     int64     `db:"token_cap" json:"token_cap"`
	TokensUsed   int64     `db:"tokens_used" json:"tokens_used"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BudgetExhausted reports whether the user has consumed the whole token cap.
func (u *User) BudgetExhausted() bool {
	return u.TokensUsed >= u.TokenCap
}

// UsageLog records the tokens consumed by one tool invocation.
type UsageLog struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ToolName       string    `db:"tool_name" json:"tool_name"`
	PromptTokens   int64     `db:"prompt_tokens" json:"prompt_tokens"`
	ResponseTokens int64     `db:"response_tokens" json:"response_tokens"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TokenUsage is what the usage hook reports back after an extraction.
type TokenUsage struct {
	PromptTokens   int64 `json:"prompt_tokens"`
	ResponseTokens int64 `json:"response_tokens"`
}

// Total sums prompt and response tokens.
func (u TokenUsage) Total() int64 {
	return u.PromptTokens + u.ResponseTokens
}

// Document represents a user-uploaded or fetched source document.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url,omitempty"` // S3 URL when archived
	SourceURL   string    `db:"source_url" json:"source_url,omitempty"`
	SourceType  string    `db:"source_type" json:"source_type"` // "upload" or "url"
	ContentType string    `db:"content_type" json:"content_type"`
	Kind        DocKind   `db:"kind" json:"kind"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DocKind is the processing family a source falls into.
type DocKind string

const (
	DocKindPDF  DocKind = "pdf"
	DocKindWord DocKind = "word"
	DocKindHTML DocKind = "html"
)

// Paginated reports whether the document can be rasterized page by page.
func (k DocKind) Paginated() bool {
	return k == DocKindPDF
}

// SourceDocument is a validated document ready to be loaded into a viewer session.
type SourceDocument struct {
	Document
	Data []byte `json:"-"`
}

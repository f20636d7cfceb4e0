package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

const minPasswordLen = 8

type UserService struct {
	db         core.DbClient
	secret     []byte
	ttl        time.Duration
	defaultCap int64
	log        zerolog.Logger
}

func NewUserService(db core.DbClient, jwtSecret string, ttl time.Duration, defaultCap int64, log zerolog.Logger) *UserService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UserService{
		db:         db,
		secret:     []byte(jwtSecret),
		ttl:        ttl,
		defaultCap: defaultCap,
		log:        log.With().Str("component", "user_service").Logger(),
	}
}

// NewUser is the input of signup and admin user creation.
type NewUser struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	TokenCap  *int64 `json:"token_cap,omitempty"`
}

func (s *UserService) create(ctx context.Context, in NewUser) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, core.InputValidationError("a valid email is required", nil)
	}
	if len(in.Password) < minPasswordLen {
		return nil, core.InputValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen), nil)
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, core.InputValidationError(fmt.Sprintf("unknown role %q", role), nil)
	}
	tokenCap := s.defaultCap
	if in.TokenCap != nil {
		if *in.TokenCap < 0 {
			return nil, core.InputValidationError("token cap must not be negative", nil)
		}
		tokenCap = *in.TokenCap
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		TokenCap:     tokenCap,
	}
	if err := s.db.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Signup registers a regular user and returns a login token.
func (s *UserService) Signup(ctx context.Context, in NewUser) (*models.User, string, error) {
	in.Role = models.RoleUser
	in.TokenCap = nil
	u, err := s.create(ctx, in)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	s.log.Info().Str("user_id", u.ID).Msg("user signed up")
	return u, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", core.UnauthorizedError("invalid credentials", nil)
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// IssueToken signs an HS256 token carrying user_id and role claims.
func (s *UserService) IssueToken(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     time.Now().Add(s.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// EnsureAdmin creates the configured admin account on first start.
// An existing account with that email is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	u, err := s.create(ctx, NewUser{FirstName: "Admin", Email: email, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("admin account created")
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, core.NotFoundError("user not found", nil)
	}
	return u, nil
}

// Admin operations.

func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	return s.create(ctx, in)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.ListUsers(ctx)
}

func (s *UserService) SetTokenCap(ctx context.Context, id string, tokenCap int64) error {
	if tokenCap < 0 {
		return core.InputValidationError("token cap must not be negative", nil)
	}
	return s.db.UpdateTokenCap(ctx, id, tokenCap)
}

func (s *UserService) ResetUsage(ctx context.Context, id string) error {
	return s.db.ResetUsage(ctx, id)
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.db.DeleteUser(ctx, id)
}

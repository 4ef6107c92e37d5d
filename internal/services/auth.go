package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

// Claims is the JWT payload issued at login. CanPreview is the capability
// DraftGuard checks before serving draft content.
type Claims struct {
	EditorID   uuid.UUID `json:"editor_id"`
	Email      string    `json:"email"`
	CanPreview bool      `json:"can_preview"`
	jwt.RegisteredClaims
}

type AuthService interface {
	CreateEditor(ctx context.Context, email, password string, canPreview bool) (*types.Editor, error)
	Login(ctx context.Context, email, password string) (string, *types.Editor, error)
	Verify(tokenString string) (*Claims, error)
}

type authService struct {
	log        *logger.Logger
	editorRepo repo.EditorRepo
	secret     []byte
	tokenTTL   time.Duration
}

func NewAuthService(baseLog *logger.Logger, editorRepo repo.EditorRepo, secret string, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &authService{
		log:        baseLog.With("service", "AuthService"),
		editorRepo: editorRepo,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
	}
}

func (s *authService) CreateEditor(ctx context.Context, email, password string, canPreview bool) (*types.Editor, error) {
	const op = "AuthService.CreateEditor"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pages.NewError(pages.CodeValidation, op, "invalid email", nil)
	}
	if len(password) < 8 {
		return nil, pages.NewError(pages.CodeValidation, op, "password must be at least 8 characters", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	rows, err := s.editorRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Editor{{
		Email:        email,
		PasswordHash: string(hash),
		CanPreview:   canPreview,
	}})
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	s.log.Info("editor created", "editor_id", rows[0].ID, "email", email)
	return rows[0], nil
}

// Login verifies credentials and issues a signed token. Wrong email and
// wrong password produce the same error.
func (s *authService) Login(ctx context.Context, email, password string) (string, *types.Editor, error) {
	const op = "AuthService.Login"
	email = strings.ToLower(strings.TrimSpace(email))

	editor, err := s.editorRepo.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return "", nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if editor == nil {
		return "", nil, pages.NewError(pages.CodeAccessDenied, op, "invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(editor.PasswordHash), []byte(password)); err != nil {
		return "", nil, pages.NewError(pages.CodeAccessDenied, op, "invalid credentials", nil)
	}

	now := time.Now().UTC()
	claims := &Claims{
		EditorID:   editor.ID,
		Email:      editor.Email,
		CanPreview: editor.CanPreview,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   editor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	s.log.Info("editor logged in", "editor_id", editor.ID)
	return token, editor, nil
}

func (s *authService) Verify(tokenString string) (*Claims, error) {
	const op = "AuthService.Verify"
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, pages.NewError(pages.CodeAccessDenied, op, "invalid token", err)
	}
	return claims, nil
}

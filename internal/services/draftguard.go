package services

import (
	"time"

	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/render"
)

// DraftGuard stands in front of every draft-serving call. Missing,
// invalid, or under-privileged credentials all come back as access_denied;
// the HTTP boundary maps that to 404 so unpublished pages stay invisible.
type DraftGuard interface {
	Authorize(tokenString, language string) (render.Context, error)
}

type draftGuard struct {
	log  *logger.Logger
	auth AuthService
}

func NewDraftGuard(baseLog *logger.Logger, auth AuthService) DraftGuard {
	return &draftGuard{
		log:  baseLog.With("service", "DraftGuard"),
		auth: auth,
	}
}

func (s *draftGuard) Authorize(tokenString, language string) (render.Context, error) {
	const op = "DraftGuard.Authorize"
	if tokenString == "" {
		return render.Context{}, pages.NewError(pages.CodeAccessDenied, op, "no credentials", nil)
	}
	claims, err := s.auth.Verify(tokenString)
	if err != nil {
		return render.Context{}, err
	}
	if !claims.CanPreview {
		s.log.Warn("editor without preview permission requested draft", "editor_id", claims.EditorID)
		return render.Context{}, pages.NewError(pages.CodeAccessDenied, op, "preview permission required", nil)
	}
	return render.Context{
		UserID:        claims.EditorID,
		Roles:         []string{"editor"},
		Authenticated: true,
		Now:           time.Now().UTC(),
		Language:      language,
	}, nil
}

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagelift/pagelift-backend/internal/http/middleware"
	"github.com/pagelift/pagelift-backend/internal/http/response"
	"github.com/pagelift/pagelift-backend/internal/render"
	"github.com/pagelift/pagelift-backend/internal/services"
)

type PageHandler struct {
	renderer        services.HybridRenderer
	guard           services.DraftGuard
	defaultLanguage string
}

func NewPageHandler(renderer services.HybridRenderer, guard services.DraftGuard, defaultLanguage string) *PageHandler {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &PageHandler{renderer: renderer, guard: guard, defaultLanguage: defaultLanguage}
}

func (ph *PageHandler) language(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return ph.defaultLanguage
}

// GetPublished serves the active version of a page to anonymous callers.
// The :id route segment carries the page keyword on render routes.
func (ph *PageHandler) GetPublished(c *gin.Context) {
	lang := ph.language(c)
	rctx := render.Context{
		Now:      time.Now().UTC(),
		Language: lang,
	}
	doc, err := ph.renderer.RenderPublishedByKeyword(c.Request.Context(), c.Param("id"), lang, rctx)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, doc)
}

// GetPreview serves the live draft to authorized editors. Authorization
// failures surface as 404.
func (ph *PageHandler) GetPreview(c *gin.Context) {
	lang := ph.language(c)
	rctx, err := ph.guard.Authorize(middleware.ExtractToken(c), lang)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	doc, err := ph.renderer.RenderDraftByKeyword(c.Request.Context(), c.Param("id"), lang, rctx)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, doc)
}

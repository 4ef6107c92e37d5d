package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/diff"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/http/middleware"
	"github.com/pagelift/pagelift-backend/internal/http/response"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/services"
)

type VersionHandler struct {
	publisher     services.PublishController
	versions      services.VersionStore
	retentionKeep int
}

func NewVersionHandler(publisher services.PublishController, versions services.VersionStore, retentionKeep int) *VersionHandler {
	return &VersionHandler{publisher: publisher, versions: versions, retentionKeep: retentionKeep}
}

type versionSummary struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"version_number"`
	VersionName   string    `json:"version_name,omitempty"`
	Fingerprint   string    `json:"fingerprint"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     string    `json:"created_at"`
	PublishedAt   string    `json:"published_at,omitempty"`
}

func summarizeVersion(v *types.PageVersion) versionSummary {
	out := versionSummary{
		ID:            v.ID,
		VersionNumber: v.VersionNumber,
		VersionName:   v.VersionName,
		Fingerprint:   v.Fingerprint,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if v.PublishedAt != nil {
		out.PublishedAt = v.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return uuid.Nil, false
	}
	return id, true
}

// Publish captures the current draft as a new version and activates it.
func (vh *VersionHandler) Publish(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		VersionName string                 `json:"version_name"`
		Metadata    map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var authorID uuid.UUID
	if claims := middleware.Claims(c); claims != nil {
		authorID = claims.EditorID
	}
	version, err := vh.publisher.Publish(c.Request.Context(), pageID, req.VersionName, req.Metadata, authorID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, summarizeVersion(version))
}

// PublishExisting re-activates a prior version of the page.
func (vh *VersionHandler) PublishExisting(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(c, "versionID")
	if !ok {
		return
	}
	version, err := vh.publisher.PublishExisting(c.Request.Context(), pageID, versionID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, summarizeVersion(version))
}

// DiscardDraft drops the page's draft sections without touching history.
func (vh *VersionHandler) DiscardDraft(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := vh.publisher.DiscardDraft(c.Request.Context(), pageID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (vh *VersionHandler) Unpublish(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := vh.publisher.Unpublish(c.Request.Context(), pageID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (vh *VersionHandler) List(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, err := vh.versions.ListVersions(dbctx.Context{Ctx: c.Request.Context()}, pageID, limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := make([]versionSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, summarizeVersion(row))
	}
	response.RespondOK(c, gin.H{
		"versions":    out,
		"total_count": total,
		"limit":       limit,
		"offset":      offset,
	})
}

func (vh *VersionHandler) Get(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(c, "versionID")
	if !ok {
		return
	}
	version, err := vh.pageVersion(c, pageID, versionID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if c.Query("include_snapshot") == "true" {
		snap, err := vh.versions.DecodeSnapshot(version)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"version": summarizeVersion(version), "snapshot": snap})
		return
	}
	response.RespondOK(c, gin.H{"version": summarizeVersion(version)})
}

// Compare diffs two versions of the same page in the requested format.
func (vh *VersionHandler) Compare(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v1ID, ok := pathUUID(c, "v1")
	if !ok {
		return
	}
	v2ID, ok := pathUUID(c, "v2")
	if !ok {
		return
	}
	format, err := diff.ParseFormat(c.DefaultQuery("format", string(diff.FormatSummary)))
	if err != nil {
		response.RespondDomainError(c, pages.Wrap(pages.CodeDiffFormat, "VersionHandler.Compare", err))
		return
	}

	v1, err := vh.pageVersion(c, pageID, v1ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	v2, err := vh.pageVersion(c, pageID, v2ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	snapA, err := vh.versions.DecodeSnapshot(v1)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	snapB, err := vh.versions.DecodeSnapshot(v2)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	result, err := diff.Diff(snapA, snapB, format)
	if err != nil {
		response.RespondDomainError(c, pages.Wrap(pages.CodeInternal, "VersionHandler.Compare", err))
		return
	}
	response.RespondOK(c, result)
}

func (vh *VersionHandler) Delete(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(c, "versionID")
	if !ok {
		return
	}
	if _, err := vh.pageVersion(c, pageID, versionID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if err := vh.versions.DeleteVersion(dbctx.Context{Ctx: c.Request.Context()}, versionID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (vh *VersionHandler) HasChanges(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	changed, activeID, err := vh.publisher.HasUnpublishedChanges(c.Request.Context(), pageID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := gin.H{"has_unpublished_changes": changed}
	if activeID != nil {
		out["current_published_version_id"] = activeID.String()
	}
	response.RespondOK(c, out)
}

// Prune hard-deletes old unpublished versions beyond a keep-count. An
// omitted keep falls back to the configured retention default.
func (vh *VersionHandler) Prune(c *gin.Context) {
	pageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Keep *int `json:"keep"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	keep := vh.retentionKeep
	if req.Keep != nil {
		keep = *req.Keep
	}
	if keep < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("keep must be non-negative"))
		return
	}
	deleted, err := vh.versions.PruneVersions(dbctx.Context{Ctx: c.Request.Context()}, pageID, keep)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}

// pageVersion loads a version and checks page ownership; a version id from
// another page reads as not found.
func (vh *VersionHandler) pageVersion(c *gin.Context, pageID, versionID uuid.UUID) (*types.PageVersion, error) {
	version, err := vh.versions.GetVersion(dbctx.Context{Ctx: c.Request.Context()}, versionID)
	if err != nil {
		return nil, err
	}
	if version.PageID != pageID {
		return nil, pages.NewError(pages.CodeNotFound, "VersionHandler.pageVersion", "version does not belong to page", nil)
	}
	return version, nil
}

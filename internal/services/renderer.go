package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/render"
)

// HybridRenderer serves pages in two phases. The static phase replays a
// snapshot (or the live draft) into a skeleton; the dynamic phase
// re-evaluates conditions, resolves record data and interpolates, per
// request. Published skeletons are cached and deduplicated; draft renders
// bypass both.
type HybridRenderer interface {
	RenderPublishedByKeyword(ctx context.Context, keyword, language string, rctx render.Context) (*render.Document, error)
	RenderDraftByKeyword(ctx context.Context, keyword, language string, rctx render.Context) (*render.Document, error)
}

type hybridRenderer struct {
	log      *logger.Logger
	pageRepo repo.PageRepo
	versions VersionStore
	drafts   DraftStore
	records  RecordSource
	cache    RenderCache
	inflight singleflight.Group
}

func NewHybridRenderer(baseLog *logger.Logger, pageRepo repo.PageRepo, versions VersionStore, drafts DraftStore, records RecordSource, cache RenderCache) HybridRenderer {
	return &hybridRenderer{
		log:      baseLog.With("service", "HybridRenderer"),
		pageRepo: pageRepo,
		versions: versions,
		drafts:   drafts,
		records:  records,
		cache:    cache,
	}
}

func (s *hybridRenderer) RenderPublishedByKeyword(ctx context.Context, keyword, language string, rctx render.Context) (*render.Document, error) {
	const op = "HybridRenderer.RenderPublishedByKeyword"
	dbc := dbctx.Context{Ctx: ctx}

	page, err := s.pageRepo.GetByKeyword(dbc, keyword)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil || page.PublishedVersionID == nil {
		return nil, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %q is not published", keyword), nil)
	}
	versionID := *page.PublishedVersionID

	skel, err := s.publishedSkeleton(dbc, page, versionID, language)
	if err != nil {
		return nil, err
	}
	return s.hydrate(dbc, skel, page, &versionID, false, rctx), nil
}

// RenderDraftByKeyword serves the live section tree. Authorization happens
// in DraftGuard before this is reached. Unpublished pages render fine here;
// only the public path requires an active version.
func (s *hybridRenderer) RenderDraftByKeyword(ctx context.Context, keyword, language string, rctx render.Context) (*render.Document, error) {
	const op = "HybridRenderer.RenderDraftByKeyword"
	dbc := dbctx.Context{Ctx: ctx}

	page, err := s.pageRepo.GetByKeyword(dbc, keyword)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil {
		return nil, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %q not found", keyword), nil)
	}
	snap, err := s.drafts.Snapshot(dbc, page)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	skel, err := render.BuildSkeleton(snap, language, page.PageType)
	if err != nil {
		return nil, pages.NewError(pages.CodeCorruptSnapshot, op, "draft section tree is not replayable", err)
	}
	skel.PageID = page.ID
	return s.hydrate(dbc, skel, page, nil, true, rctx), nil
}

// publishedSkeleton returns the cached static phase for the active version,
// building it once per (page, version, language) across concurrent misses.
func (s *hybridRenderer) publishedSkeleton(dbc dbctx.Context, page *types.Page, versionID uuid.UUID, language string) (*render.Skeleton, error) {
	const op = "HybridRenderer.publishedSkeleton"

	if skel, ok := s.cache.GetSkeleton(dbc.Ctx, page.ID, versionID, language); ok {
		return skel, nil
	}

	key := fmt.Sprintf("%s:%s:%s", page.ID, versionID, language)
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		version, err := s.versions.GetVersion(dbc, versionID)
		if err != nil {
			return nil, err
		}
		snap, err := s.versions.DecodeSnapshot(version)
		if err != nil {
			return nil, err
		}
		// Replay uses the page type captured in the snapshot; the live row
		// may have changed since publish and must not alter published output.
		skel, err := render.BuildSkeleton(snap, language, snap.Meta.PageType)
		if err != nil {
			return nil, pages.NewError(pages.CodeCorruptSnapshot, op, "stored snapshot is not replayable", err)
		}
		skel.PageID = page.ID
		skel.VersionID = &versionID
		s.cache.SetSkeleton(dbc.Ctx, page.ID, versionID, language, skel)
		return skel, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*render.Skeleton), nil
}

// hydrate runs the dynamic phase over a skeleton: conditions prune, record
// data resolves, placeholders interpolate. The walk never writes.
func (s *hybridRenderer) hydrate(dbc dbctx.Context, skel *render.Skeleton, page *types.Page, versionID *uuid.UUID, draft bool, rctx render.Context) *render.Document {
	doc := &render.Document{
		PageID:     page.ID,
		VersionID:  versionID,
		Keyword:    skel.Keyword,
		Title:      skel.Title,
		Language:   skel.Language,
		Draft:      draft,
		RenderedAt: time.Now().UTC(),
	}
	for _, sec := range skel.Sections {
		if out := s.hydrateSection(dbc, sec, rctx); out != nil {
			doc.Sections = append(doc.Sections, out)
		}
	}
	return doc
}

func (s *hybridRenderer) hydrateSection(dbc dbctx.Context, sec *render.SkeletonSection, rctx render.Context) *render.DocumentSection {
	visible, err := render.EvaluateCondition(sec.Condition, rctx)
	if err != nil {
		// Fail closed: an unevaluable condition hides the section.
		s.log.Warn("condition evaluation failed, hiding section",
			"section_key", sec.Key, "error", err)
		return nil
	}
	if !visible {
		return nil
	}

	var data map[string]string
	if sec.DataConfig != nil {
		data, err = s.records.Resolve(dbc, sec.DataConfig)
		if err != nil {
			// Missing or unreadable data degrades to empty; the section
			// still renders its static content.
			s.log.Warn("record resolution failed, rendering without data",
				"section_key", sec.Key, "collection", sec.DataConfig.Collection, "error", err)
			data = map[string]string{}
		}
	}

	out := &render.DocumentSection{
		Key:      sec.Key,
		Kind:     sec.Kind,
		Position: sec.Position,
		Style:    sec.Style,
		Fields:   render.Interpolate(sec.Fields, data),
		Data:     data,
	}
	for _, child := range sec.Children {
		if c := s.hydrateSection(dbc, child, rctx); c != nil {
			out.Children = append(out.Children, c)
		}
	}
	return out
}

// Package domain re-exports the persisted model types so repos and services
// can refer to a single types package.
package domain

import (
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
)

type (
	Page        = pages.Page
	PageVersion = pages.PageVersion
	PageSection = pages.PageSection
	PageRecord  = pages.PageRecord
	Editor      = pages.Editor
)

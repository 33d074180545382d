// Package view renders server-side HTML components. Components live in
// .templ files; run `templ generate` after editing them.
package view

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"
	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/imageprep"
)

const (
	// GalleryID is the element the gallery is patched into.
	GalleryID = "gallery"
	// StagingPanelID is the element the upload panel is patched into.
	StagingPanelID = "staging-panel"
)

// ReviewListData is everything the review list page shows.
type ReviewListData struct {
	Reviews []domain.Review
	Total   int
	Status  string
	Query   string
	Page    int
	Pages   int
	PrevURL string
	NextURL string
}

// StagingNotice is a one-off message shown above the panel.
type StagingNotice struct {
	Success  string
	Error    string
	Warnings []imageprep.Warning
}

var reviewStatuses = []domain.ReviewStatus{
	domain.ReviewStatusOpen,
	domain.ReviewStatusInProgress,
	domain.ReviewStatusComplete,
}

func statusLabel(s domain.ReviewStatus) string {
	switch s {
	case domain.ReviewStatusOpen:
		return "Open"
	case domain.ReviewStatusInProgress:
		return "In progress"
	case domain.ReviewStatusComplete:
		return "Complete"
	default:
		return string(s)
	}
}

func reviewPath(id int64) string {
	return "/reviews/" + strconv.FormatInt(id, 10)
}

func reviewURL(id int64) templ.SafeURL {
	return templ.SafeURL(reviewPath(id))
}

func stagingURL(sessionID, action string) string {
	return "/staging/" + sessionID + "/" + action
}

func itemURL(sessionID string, index int) string {
	return stagingURL(sessionID, "items/"+strconv.Itoa(index))
}

// postAction is a datastar click action.
func postAction(url string) string {
	return fmt.Sprintf("@post('%s')", url)
}

// formPostAction posts the enclosing form's fields.
func formPostAction(url string) string {
	return fmt.Sprintf("@post('%s', {contentType: 'form'})", url)
}

// panelOpen reports whether the staging controls are shown. Idle and
// finished sessions render their notices only.
func panelOpen(s imageprep.State) bool {
	return s != imageprep.StateIdle && s != imageprep.StateSucceeded
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

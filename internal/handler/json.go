package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// ActionResult is the uniform response of form actions. Exactly one of
// Error and Success is set.
type ActionResult struct {
	Error   string `json:"error,omitempty"`
	Success string `json:"success,omitempty"`
}

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError sends a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ActionResult{Error: message})
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, ActionResult{Success: message})
}

// readJSON decodes the request body into the given destination.
func readJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// safeRedirectPath returns p when it is a same-site absolute path.
func safeRedirectPath(p string) (string, bool) {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "", false
	}
	return p, true
}

// finishAction answers a successful form action: a 303 back to
// revalidate_path for plain form posts, JSON otherwise.
func finishAction(w http.ResponseWriter, r *http.Request, message string) {
	if !wantsJSON(r) {
		if p, ok := safeRedirectPath(r.FormValue("revalidate_path")); ok {
			http.Redirect(w, r, p, http.StatusSeeOther)
			return
		}
	}
	writeSuccess(w, message)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

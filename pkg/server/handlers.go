package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>loom</title></head>
<body><div id="root">%s</div></body>
</html>
`

// handlePage renders a fresh application instance to completion and serves
// it as a static page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	h := memhost.New()
	root := h.NewContainer("div")
	sched := reconciler.New(h,
		reconciler.WithLogger(s.logger.With("component", "reconciler")),
		reconciler.WithDebug(s.config.Debug),
	)

	if err := sched.Render(s.app(), root); err != nil {
		s.renderError(w, err)
		return
	}
	if err := sched.Flush(); err != nil {
		s.renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate, memhost.HTML(root))
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	s.logger.Error("page render failed", "error", err)
	http.Error(w, "render failed", http.StatusInternalServerError)
}

type sessionInfo struct {
	ID       string     `json:"id"`
	Cycle    uint64     `json:"cycle"`
	Snapshot *time.Time `json:"snapshot,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.SessionIDs()
	out := make([]sessionInfo, 0, len(ids))
	for _, id := range ids {
		sess := s.Session(id)
		if sess == nil {
			continue
		}
		info := sessionInfo{ID: id}
		if snap := sess.Snapshot(); snap != nil {
			info.Cycle = snap.Cycle
			taken := snap.Taken
			info.Snapshot = &taken
		}
		out = append(out, info)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("encode sessions failed", "error", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.Session(chi.URLParam(r, "id"))
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	snap := sess.Snapshot()
	if snap == nil {
		http.Error(w, "no commit yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Loom-Cycle", fmt.Sprint(snap.Cycle))
	_, _ = w.Write(snap.HTML)
}

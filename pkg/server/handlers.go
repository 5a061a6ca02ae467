package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gitway/pkg/buildinfo"
	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/observability"
	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatNodelink: "image/svg+xml",
	pipeline.FormatDOT:      "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatText:     "text/plain; charset=utf-8",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
}

// handleGraph serves a snapshot document. before and after are unix
// seconds; missing or unparsable values fall back to now and
// before-window.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if s.opts.Source == nil {
		res := s.opts.Runner.Current()
		if res == nil {
			writeError(w, errors.New(errors.ErrCodeNotFound, "no snapshot yet"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(res.SnapshotData)
		return
	}

	before, after := graphWindow(r, s.now(), s.opts.Window)
	snap, err := s.opts.Source.Snapshot(r.Context(), before, after)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := snapshot.Write(snap, w); err != nil {
		s.logger.Warn("write snapshot", "error", err)
	}
}

func graphWindow(r *http.Request, now time.Time, window time.Duration) (before, after time.Time) {
	before = now
	if v, err := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64); err == nil {
		before = time.Unix(v, 0)
	}
	after = before.Add(-window)
	if v, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64); err == nil {
		after = time.Unix(v, 0)
	}
	return before, after
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	res := s.opts.Runner.Current()
	if res == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no diagram yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", strconv.Quote(res.DiagramHash))
	if r.Header.Get("If-None-Match") == strconv.Quote(res.DiagramHash) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	_, _ = w.Write(res.DiagramJSON)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, chi.URLParam(r, "format"))
}

func (s *Server) handleRenderFormat(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { s.render(w, r, format) }
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, format string) {
	data, hit, err := s.opts.Runner.RenderCurrent(r.Context(), format, s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Poller == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "no poller configured"))
		return
	}
	s.opts.Poller.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "applied": s.opts.Runner.Applied()})
}

// Stats is the /api/stats response.
type Stats struct {
	Applied  uint64                         `json:"applied"`
	Clients  int                            `json:"clients"`
	Lanes    int                            `json:"lanes"`
	Diagram  *DiagramStats                  `json:"diagram,omitempty"`
	Counters *observability.CounterSnapshot `json:"counters,omitempty"`
}

// DiagramStats summarizes the current diagram.
type DiagramStats struct {
	Hash          string    `json:"hash"`
	Nodes         int       `json:"nodes"`
	Links         int       `json:"links"`
	Branches      int       `json:"branches"`
	Skipped       int       `json:"skipped_branches"`
	DanglingLinks int       `json:"dangling_links"`
	DanglingRefs  int       `json:"dangling_refs"`
	AppliedAt     time.Time `json:"applied_at"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := Stats{
		Applied: s.opts.Runner.Applied(),
		Clients: s.hub.Len(),
		Lanes:   s.opts.Runner.Engine.LaneCount(),
	}
	if res := s.opts.Runner.Current(); res != nil {
		d := res.Diagram
		st.Diagram = &DiagramStats{
			Hash:          res.DiagramHash,
			Nodes:         res.Stats.Nodes,
			Links:         res.Stats.Links,
			Branches:      d.Stats.Branches,
			Skipped:       d.Stats.SkippedBranches,
			DanglingLinks: d.Stats.DanglingLinks,
			DanglingRefs:  d.Stats.DanglingRefs,
			AppliedAt:     res.AppliedAt,
		}
	}
	if s.opts.Counters != nil {
		c := s.opts.Counters.Snapshot()
		st.Counters = &c
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"applied": s.opts.Runner.Applied(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	s.hub.serve(conn, s.opts.Runner.Current())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusServiceUnavailable
	case errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidWindow:
		status = http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		status = http.StatusNotImplemented
	case errors.ErrCodeNetwork, errors.ErrCodeTimeout:
		status = http.StatusBadGateway
	}
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>gitway</title>
  <style>
    body { margin: 0; background: #ffffff; }
    #diagram { width: 100%; }
  </style>
</head>
<body>
  <img id="diagram" src="/diagram.svg" alt="branch diagram">
  <script>
    const img = document.getElementById("diagram");
    function connect() {
      const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/ws");
      ws.onmessage = (ev) => {
        if (JSON.parse(ev.data).type === "diagram") {
          img.src = "/diagram.svg?t=" + Date.now();
        }
      };
      ws.onclose = () => setTimeout(connect, 2000);
    }
    connect();
    setInterval(() => { img.src = "/diagram.svg?t=" + Date.now(); }, 60000);
  </script>
</body>
</html>
`

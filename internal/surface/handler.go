package surface

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const EventOverlay = "overlay"

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Selection Protocol</title>
<style>
body { margin: 0; background: transparent; font-family: sans-serif; color: white; }
.counts { display: flex; gap: 16px; font-size: 32px; }
.value.animate { animation: pulse 0.3s ease-out; }
@keyframes pulse { from { transform: scale(1.4); } to { transform: scale(1); } }
.timer { font-size: 48px; font-weight: bold; }
.status { font-size: 18px; font-style: italic; background: #333333; margin-top: 10px; }
</style>
</head>
<body>
<div id="root">%s</div>
<script>
const src = new EventSource("events");
src.addEventListener("overlay", (e) => { document.getElementById("root").innerHTML = e.data; });
</script>
</body>
</html>
`

// Handler serves the overlay page for a browser source and an SSE stream of
// re-rendered fragments.
func Handler(b *Board, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "surface"))

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, page, OverlayFragment(b, nil))
	})
	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		serveEvents(w, r, b, log)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func serveEvents(w http.ResponseWriter, r *http.Request, b *Board, log *zap.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering in nginx/proxies

	changes, unsubscribe := b.Subscribe()
	defer unsubscribe()

	// pulses already on the board are history for a new client
	seen := make(map[string]int)
	OverlayFragment(b, seen)

	// initial frame so a fresh browser source is never blank
	sent := b.Version()
	writeFrame(w, EventOverlay, OverlayFragment(b, seen))
	flusher.Flush()
	log.Debug("sse client connected", zap.String("remote", r.RemoteAddr))

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("sse client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-changes:
			v := b.Version()
			if v == sent {
				continue
			}
			sent = v
			writeFrame(w, EventOverlay, OverlayFragment(b, seen))
			flusher.Flush()
		}
	}
}

// writeFrame writes one SSE event, one data line per line of payload.
func writeFrame(w io.Writer, event, payload string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(w, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	fmt.Fprint(w, "\n")
}

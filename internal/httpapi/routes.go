package httpapi

import (
	"net/http"
	"strings"

	"github.com/DoyleJ11/selection-protocol/internal/hub"
	"github.com/DoyleJ11/selection-protocol/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Options struct {
	DefaultChannel string
	AllowedOrigins []string
	History        History // nil disables /channels/{code}/log
	Logger         *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/actions", Actions)
	r.Post("/channels", CreateChannel(h, log.With(zap.String("component", "httpapi"))))
	r.Get("/channels/{code}/state", ChannelState(h))
	if opts.History != nil {
		r.Get("/channels/{code}/log", ChannelLog(opts.History))
	}
	r.Get("/ws", ws.Handler(h, ws.Options{
		DefaultChannel: opts.DefaultChannel,
		OriginPatterns: originPatterns(origins),
		Logger:         log,
	}))

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// originPatterns converts CORS origins ("http://host:port") into websocket
// origin patterns, which match on host only.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}

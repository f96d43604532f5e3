package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "github.com/nebulachat/backend/internal/handler/auth"
	chatHandler "github.com/nebulachat/backend/internal/handler/chat"
	prefsHandler "github.com/nebulachat/backend/internal/handler/prefs"
	streamHandler "github.com/nebulachat/backend/internal/handler/stream"
	wsHandler "github.com/nebulachat/backend/internal/handler/ws"
	"github.com/nebulachat/backend/internal/middleware"
	authservice "github.com/nebulachat/backend/internal/service/auth"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	prefsservice "github.com/nebulachat/backend/internal/service/prefs"
	"github.com/nebulachat/backend/internal/service/session"
	"github.com/nebulachat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. controller may be nil when
// the AI backend is unconfigured; streaming surfaces then answer 503.
func NewRouter(chatSvc *chatservice.Service, authSvc *authservice.Service, prefsSvc *prefsservice.Service, controller *session.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(chatSvc, controller).RegisterRoutes(api)
		authHandler.New(authSvc).RegisterRoutes(api)
		prefsHandler.New(prefsSvc).RegisterRoutes(api)

		var streams *streamHandler.Handler
		if controller != nil {
			streams = streamHandler.New(controller)
			wsHandler.New(chatSvc, controller).RegisterRoutes(api)
		}

		api.Get("/stream/{chatroomID}", func(w http.ResponseWriter, r *http.Request) {
			if streams == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}

			chatroomID := chi.URLParam(r, "chatroomID")
			content := r.URL.Query().Get("message")
			image := r.URL.Query().Get("image")
			if content == "" && image == "" {
				utils.RespondError(w, http.StatusBadRequest, "message or image parameter is required")
				return
			}

			streams.HandleStreamRequest(w, r, chatroomID, content, image)
		})
	})

	return r
}

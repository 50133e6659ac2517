package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sec-rag/internal/handlers"
	"sec-rag/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QAService service.QAService
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	answerHandler := handlers.NewAnswerHandler(deps.QAService)
	healthHandler := handlers.NewHealthHandler(deps.QAService)
	queriesHandler := handlers.NewQueriesHandler(deps.QAService)

	r.Method(http.MethodPost, "/answer", answerHandler)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/answer", answerHandler)
			r.Method(http.MethodGet, "/queries", queriesHandler)
		})
	})

	return r
}

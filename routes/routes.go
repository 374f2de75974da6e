package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shuttlehq/federation-system/handlers"
	"github.com/shuttlehq/federation-system/middleware"
)

// SetupRoutes wires the full route tree. Reads are public; everything
// that mutates a tournament, category, bracket or match requires a
// token, and destructive match operations additionally require the
// referee or admin role.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	bracketHandler *handlers.BracketHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", handlers.HealthHandler)

	authenticated := middleware.Authenticate(jwtSecret)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/categories", tournamentHandler.ListCategoriesHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Authorize("organizer", "admin"))

			r.Post("/", tournamentHandler.CreateHandler)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatusHandler)
			r.Post("/{tournamentID}/categories", tournamentHandler.CreateCategoryHandler)
		})
	})

	router.Route("/categories", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Authorize("organizer", "admin"))

			r.Post("/{categoryID}/bracket", bracketHandler.BuildHandler)
		})
	})

	router.Route("/brackets", func(r chi.Router) {
		r.Get("/{bracketID}", bracketHandler.ViewHandler)
		r.Get("/{bracketID}/events", bracketHandler.EventsHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Authorize("referee", "organizer", "admin"))

			r.Post("/{matchID}/score", matchHandler.SubmitScoreHandler)
			r.Post("/{matchID}/start", matchHandler.StartHandler)
			r.Post("/{matchID}/forfeit", matchHandler.ForfeitHandler)
			r.Post("/{matchID}/postpone", matchHandler.PostponeHandler)
			r.Post("/{matchID}/reschedule", matchHandler.RescheduleHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Authorize("admin"))

			r.Post("/{matchID}/cancel", matchHandler.CancelHandler)
			r.Post("/{matchID}/slots/{slot}", matchHandler.ResolveSlotHandler)
		})
	})

	router.Get("/ws/brackets/{bracketID}", webSocketHandler.ServeWs)
}

package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
)

// SetupRoutes настраивает все маршруты API. Чтение расписания и таблиц и
// сдача результатов публичны; создание турниров и административные правки
// требуют JWT с ролью admin.
func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret string,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты: игровые клиенты читают расписание и сдают
		// результаты без аутентификации.
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{name}", tournamentHandler.GetHandler)
		r.Get("/{name}/matches", tournamentHandler.MatchesHandler)
		r.Get("/{name}/standings", tournamentHandler.StandingsHandler)
		r.Get("/{name}/standings/history", tournamentHandler.StandingsHistoryHandler)
		r.Get("/{name}/actions", tournamentHandler.ListActionsHandler)
		r.Post("/{name}/results", tournamentHandler.SubmitResultHandler)

		// Защищенные маршруты только для администратора.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize("admin"))

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{name}/actions", tournamentHandler.AppendActionHandler)
			r.Delete("/{name}", tournamentHandler.DeleteHandler)
		})
	})

	router.Get("/ws/tournaments/{name}", webSocketHandler.ServeWs)
}

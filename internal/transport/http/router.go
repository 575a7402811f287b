package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mcq-practice-service/internal/metrics"
)

// NewRouter mounts the REST API, the session websocket, health and metrics.
func NewRouter(h *Handler, ws *WSHandler, auth *Authenticator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.With(auth.Middleware).Get("/ws/session", ws.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{categoryID}", h.GetCategory)
		r.Get("/categories/{categoryID}/mcqs", h.ListCategoryMCQs)

		r.Get("/mcqs", h.ListMCQsByIDs)
		r.Get("/mcqs/{mcqID}", h.GetMCQ)
		r.Get("/mcqs/{mcqID}/comments", h.ListComments)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Post("/mcqs", h.SubmitMCQ)
			r.Post("/mcqs/{mcqID}/answer", h.AnswerMCQ)
			r.Post("/mcqs/{mcqID}/comments", h.AddComment)

			r.Get("/favorites", h.ListFavorites)
			r.Get("/favorites/mcqs", h.ListFavoriteMCQs)
			r.Put("/favorites/{mcqID}", h.AddFavorite)
			r.Delete("/favorites/{mcqID}", h.RemoveFavorite)

			r.Route("/session", func(r chi.Router) {
				r.Post("/", h.SignIn)
				r.Delete("/", h.SignOut)
				r.Get("/me", h.Me)
				r.Post("/refresh", h.RefreshProfile)
				r.Post("/register", h.Register)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/categories", h.SaveCategory)
				r.Put("/categories/{categoryID}", h.SaveCategory)
				r.Delete("/categories/{categoryID}", h.DeleteCategory)
				r.Post("/categories/{categoryID}/subcategories", h.AddSubcategory)
				r.Put("/categories/{categoryID}/subcategories/{subcategoryID}", h.EditSubcategory)
				r.Delete("/categories/{categoryID}/subcategories/{subcategoryID}", h.DeleteSubcategory)

				r.Get("/mcqs", h.ListAdminMCQs)
				r.Get("/mcqs/pending", h.ListPendingMCQs)
				r.Post("/mcqs", h.CreateMCQ)
				r.Post("/mcqs/import", h.ImportMCQs)
				r.Post("/mcqs/{mcqID}/approve", h.ApproveMCQ)
				r.Delete("/mcqs/{mcqID}", h.DeleteMCQ)
				r.Post("/seed", h.Seed)

				r.Get("/comments", h.ListAllComments)
				r.Post("/comments/{commentID}/approve", h.ApproveComment)
				r.Post("/comments/{commentID}/revoke", h.RevokeComment)
				r.Put("/comments/{commentID}", h.EditComment)

				r.Get("/users", h.ListUsers)
				r.Put("/users/{uid}/admin", h.SetAdmin)
				r.Delete("/users/{uid}", h.DeleteUser)
			})
		})
	})
	return r
}

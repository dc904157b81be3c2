package routes

import (
	"Quillpad/internal/api/handlers/post"
	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/posts"

	"github.com/go-chi/chi/v5"
)

// RegisterPostRoutes registers the owner-scoped post endpoints.
// Every route requires a valid bearer token.
func RegisterPostRoutes(r chi.Router, service posts.Service, authMiddleware *middleware.BearerAuthMiddleware) {
	listHandler := post.NewListHandler(service)
	getHandler := post.NewGetHandler(service)
	createHandler := post.NewCreateHandler(service)
	updateHandler := post.NewUpdateHandler(service)
	deleteHandler := post.NewDeleteHandler(service)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/posts", listHandler.HandleList)
		r.Post("/posts", createHandler.HandleCreate)
		r.Get("/posts/{id}", getHandler.HandleGet)
		r.Put("/posts/{id}", updateHandler.HandleUpdate)
		r.Delete("/posts/{id}", deleteHandler.HandleDelete)
	})
}

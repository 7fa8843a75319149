package web

import "github.com/gofiber/fiber/v3"

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	router.Get("/demos", h.GetDemos)
	router.Get("/demos/:id", h.GetDemo)
	router.Post("/catalog/sync", h.SyncCatalog)

	router.Get("/config", h.GetConfig)
	router.Put("/config", h.UpdateConfig)

	i := router.Group("/instances")
	i.Get("/", h.GetInstances)
	i.Post("/", h.CreateInstance)
	i.Get("/:id", h.GetInstance)
	i.Delete("/:id", h.DeleteInstance)
	i.Post("/:id/execute", h.ExecuteInstance)
	i.Post("/:id/reapply", h.ReapplyInstance)
}

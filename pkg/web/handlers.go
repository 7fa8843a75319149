package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/catalogsync"
	"github.com/dukex/demodeck/pkg/config"
	"github.com/dukex/demodeck/pkg/execution"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	demos        *services.Demos
	store        *instances.Store
	orchestrator *execution.Orchestrator
	sync         *catalogsync.Controller
	config       *config.Store
	validator    *validator.Validate
	logger       *slog.Logger
	// background outlives requests; runs started over the API are bound to it.
	background context.Context
}

func NewAPIHandlers(
	ctx context.Context,
	demos *services.Demos,
	store *instances.Store,
	orchestrator *execution.Orchestrator,
	sync *catalogsync.Controller,
	configStore *config.Store,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		demos:        demos,
		store:        store,
		orchestrator: orchestrator,
		sync:         sync,
		config:       configStore,
		validator:    config.NewValidator(),
		logger:       logger.With("module", "web"),
		background:   ctx,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	persistenceCheck, ok := h.demos.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetDemos(c fiber.Ctx) error {
	defs, err := h.demos.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"demos": defs})
}

func (h *APIHandlers) GetDemo(c fiber.Ctx) error {
	def, err := h.demos.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DemoResponse{DemoDefinition: def, Schema: catalog.Schema(def.Parameters)})
}

func (h *APIHandlers) SyncCatalog(c fiber.Ctx) error {
	result, err := h.sync.Sync(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetConfig(c fiber.Ctx) error {
	return c.JSON(h.config.Load(c.Context()))
}

func (h *APIHandlers) UpdateConfig(c fiber.Ctx) error {
	var cfg models.CatalogConfig
	if err := c.Bind().JSON(&cfg); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.config.Validate(cfg); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.config.Save(c.Context(), cfg); err != nil {
		return internalError(c, err)
	}

	return c.JSON(h.config.Load(c.Context()))
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	list, err := h.store.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"instances": list})
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	instance, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) CreateInstance(c fiber.Ctx) error {
	var req CreateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.demos.Launch(c.Context(), req.DemoID, req.Values)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Execute {
		h.executeInBackground(instance.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) DeleteInstance(c fiber.Ctx) error {
	err := h.store.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteInstance starts a run. With ?wait=true it responds with the final status,
// otherwise it returns 202 as soon as the run is started.
func (h *APIHandlers) ExecuteInstance(c fiber.Ctx) error {
	id := c.Params("id")

	wait := false
	if raw := c.Query("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "Invalid wait parameter")
		}

		wait = parsed
	}

	instance, err := h.store.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if instance.Status.State == models.InstanceStateRunning {
		return handleServiceError(c, execution.ErrAlreadyRunning)
	}

	if !wait {
		h.executeInBackground(id)

		return c.Status(fiber.StatusAccepted).JSON(ExecutionAccepted{ID: id, State: models.InstanceStateRunning})
	}

	status, err := h.orchestrator.Execute(c.Context(), id, nil)
	if status == nil {
		return handleServiceError(c, err)
	}

	// A failed run is still a completed request; the failure is in the status.
	return c.JSON(status)
}

func (h *APIHandlers) ReapplyInstance(c fiber.Ctx) error {
	status, err := h.orchestrator.Reapply(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) executeInBackground(id string) {
	go func() {
		_, err := h.orchestrator.Execute(h.background, id, nil)
		if err != nil {
			h.logger.WarnContext(h.background, "Background run ended with an error", "instance_id", id, "error", err)
		}
	}()
}

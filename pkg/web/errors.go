package web

import (
	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps the domain error taxonomy to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsNotFound(err):
		return problem(c, fiber.StatusNotFound, "not_found", err.Error())
	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())
	case faults.IsConfiguration(err):
		return problem(c, fiber.StatusUnprocessableEntity, "configuration_error", err.Error())
	case faults.IsAcquisition(err):
		return problem(c, fiber.StatusBadGateway, "acquisition_error", err.Error())
	case faults.IsParse(err):
		return problem(c, fiber.StatusInternalServerError, "parse_error", err.Error())
	case faults.IsExecution(err):
		return problem(c, fiber.StatusInternalServerError, "execution_error", err.Error())
	default:
		return internalError(c, err)
	}
}

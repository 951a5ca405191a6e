package controller

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/repository"
	"better-pypi-stats/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type DownloadController interface {
	GetDownloads(c *fiber.Ctx) error
	GetRollingDownloads(c *fiber.Ctx) error
	GetSummary(c *fiber.Ctx) error
	GetBreakdown(c *fiber.Ctx) error
	GetWeekdays(c *fiber.Ctx) error
	GetRange(c *fiber.Ctx) error
}

// downloadController exposes HTTP handlers for the dashboard queries.
type downloadController struct {
	downloadService service.DownloadService
}

// NewDownloadController builds a DownloadController.
func NewDownloadController(svc service.DownloadService) DownloadController {
	return &downloadController{downloadService: svc}
}

// GetDownloads returns the bucketed download series of a project.
func (h *downloadController) GetDownloads(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.GetDownloads(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to fetch downloads")
	}

	return c.JSON(resp)
}

// GetRollingDownloads returns the series summed over a trailing window.
func (h *downloadController) GetRollingDownloads(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.GetRollingDownloads(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to fetch rolling downloads")
	}

	return c.JSON(resp)
}

func (h *downloadController) GetSummary(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.GetSummary(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to fetch summary")
	}

	return c.JSON(resp)
}

func (h *downloadController) GetBreakdown(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.GetBreakdown(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to fetch breakdown")
	}

	return c.JSON(resp)
}

func (h *downloadController) GetWeekdays(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.GetWeekdays(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to fetch weekday downloads")
	}

	return c.JSON(resp)
}

// GetRange resolves a quick-range preset to concrete dates.
func (h *downloadController) GetRange(c *fiber.Ctx) error {
	filter, err := buildDownloadsFilter(c)
	if err != nil {
		return err
	}

	resp, err := h.downloadService.ResolveRange(c.Context(), filter)
	if err != nil {
		return mapServiceError(err, "failed to resolve range")
	}

	return c.JSON(resp)
}

// mapServiceError turns a service error into the HTTP error shown to the
// client. Store failures are logged, since their details are not returned.
func mapServiceError(err error, message string) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Message)
	}

	var connErr *repository.ConnectionError
	var queryErr *repository.QueryError

	switch {
	case errors.As(err, &connErr):
		slog.Error(message, slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusServiceUnavailable, "download store unavailable")
	case errors.As(err, &queryErr):
		slog.Error(message, slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusBadGateway, "download store rejected the query")
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn(message, slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusGatewayTimeout, "download store timed out")
	default:
		slog.Error(message, slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusInternalServerError, message)
	}
}

func buildDownloadsFilter(c *fiber.Ctx) (model.DownloadsFilter, error) {
	project := utils.Trim(c.Params("project"), ' ')
	if project == "" {
		return model.DownloadsFilter{}, fiber.NewError(fiber.StatusBadRequest, "project is required")
	}

	var start, end time.Time

	if raw := utils.Trim(c.Query("start"), ' '); raw != "" {
		parsed, parseErr := time.Parse(model.DateLayout, raw)
		if parseErr != nil {
			return model.DownloadsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		}
		start = parsed
	}

	if raw := utils.Trim(c.Query("end"), ' '); raw != "" {
		parsed, parseErr := time.Parse(model.DateLayout, raw)
		if parseErr != nil {
			return model.DownloadsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		}
		end = parsed
	}

	var runningTotal bool
	if raw := utils.Trim(c.Query("running_total"), ' '); raw != "" {
		parsed, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return model.DownloadsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid running_total")
		}
		runningTotal = parsed
	}

	var window int
	if raw := utils.Trim(c.Query("window"), ' '); raw != "" {
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return model.DownloadsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid window")
		}
		window = parsed
	}

	return model.DownloadsFilter{
		Project:      project,
		Start:        start,
		End:          end,
		Preset:       utils.Trim(c.Query("preset"), ' '),
		Bucket:       utils.Trim(c.Query("bucket"), ' '),
		GroupBy:      utils.Trim(c.Query("group_by"), ' '),
		VersionStyle: utils.Trim(c.Query("version_style"), ' '),
		Table:        utils.Trim(c.Query("table"), ' '),
		RunningTotal: runningTotal,
		Window:       window,
	}, nil
}

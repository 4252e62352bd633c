package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
)

type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Totals handles GET /api/getTotalStats
func (h *StatsHandler) Totals(c fiber.Ctx) error {
	stats, err := h.svc.Totals(c.Context())
	if err != nil {
		return serviceError(c, err, "load stats")
	}
	return c.JSON(stats)
}

// ViewsForUser handles GET /api/getViewsForUser?userID=
func (h *StatsHandler) ViewsForUser(c fiber.Ctx) error {
	userID, errMsg := middleware.ValidatePrivateUserID(c.Query("userID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	resp, err := h.svc.ViewsForUser(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "load views")
	}
	return c.JSON(resp)
}

// SavedTimeForUser handles GET /api/getSavedTimeForUser?userID=
func (h *StatsHandler) SavedTimeForUser(c fiber.Ctx) error {
	userID, errMsg := middleware.ValidatePrivateUserID(c.Query("userID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	resp, err := h.svc.SavedTimeForUser(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "load saved time")
	}
	return c.JSON(resp)
}

// TopUsers handles GET /api/getTopUsers?sortType=0|1|2 (minutes saved, views,
// submissions).
func (h *StatsHandler) TopUsers(c fiber.Ctx) error {
	raw := c.Query("sortType")
	if raw == "" {
		return invalidField(c, "sortType is required")
	}
	n, err := strconv.Atoi(raw)
	sortBy := model.LeaderboardSort(n)
	if err != nil || !sortBy.Valid() {
		return invalidField(c, "sortType must be 0, 1 or 2")
	}
	resp, err := h.svc.TopUsers(c.Context(), sortBy)
	if err != nil {
		return serviceError(c, err, "load top users")
	}
	return c.JSON(resp)
}

// DaysSaved handles GET /api/getDaysSavedFormatted
func (h *StatsHandler) DaysSaved(c fiber.Ctx) error {
	resp, err := h.svc.DaysSaved(c.Context())
	if err != nil {
		return serviceError(c, err, "load stats")
	}
	return c.JSON(resp)
}

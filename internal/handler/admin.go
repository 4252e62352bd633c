package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ShadowBan handles POST /api/shadowBanUser?userID&adminUserID[&enabled][&unHideOldSubmissions]
func (h *AdminHandler) ShadowBan(c fiber.Ctx) error {
	target, admin, ok := h.parse(c)
	if !ok {
		return nil
	}
	err := h.svc.SetShadowBan(c.Context(), admin, target,
		queryBool(c, "enabled", true),
		queryBool(c, "unHideOldSubmissions", true))
	if err != nil {
		return serviceError(c, err, "update shadow ban")
	}
	return c.SendStatus(fiber.StatusOK)
}

// AddVIP handles POST /api/addUserAsVIP?userID&adminUserID[&enabled]
func (h *AdminHandler) AddVIP(c fiber.Ctx) error {
	target, admin, ok := h.parse(c)
	if !ok {
		return nil
	}
	if err := h.svc.SetVIP(c.Context(), admin, target, queryBool(c, "enabled", true)); err != nil {
		return serviceError(c, err, "update vip")
	}
	return c.SendStatus(fiber.StatusOK)
}

// parse writes the error response itself and reports ok=false on bad input.
func (h *AdminHandler) parse(c fiber.Ctx) (target, admin string, ok bool) {
	target, errMsg := middleware.ValidatePublicUserID(c.Query("userID"))
	if errMsg != "" {
		_ = invalidField(c, errMsg)
		return "", "", false
	}
	admin, errMsg = middleware.ValidatePrivateUserID(c.Query("adminUserID"))
	if errMsg != "" {
		_ = invalidField(c, "adminUserID is required")
		return "", "", false
	}
	return target, admin, true
}

package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

type SegmentHandler struct {
	svc    *service.SegmentService
	ipSalt string
}

func NewSegmentHandler(svc *service.SegmentService, ipSalt string) *SegmentHandler {
	return &SegmentHandler{svc: svc, ipSalt: ipSalt}
}

// Get handles GET /api/skipSegments?videoID=
func (h *SegmentHandler) Get(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateVideoID(c.Query("videoID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	list, err := h.svc.GetPublicSegments(c.Context(), videoID, hash.HashIP(middleware.ClientIP(c), h.ipSalt))
	if err != nil {
		return serviceError(c, err, "look up segments")
	}
	return c.JSON(model.NewSegmentListResponse(list))
}

// Submit handles POST /api/skipSegments?videoID&startTime&endTime&userID[&category]
func (h *SegmentHandler) Submit(c fiber.Ctx) error {
	videoID, errMsg := middleware.ValidateVideoID(c.Query("videoID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	start, errMsg := middleware.ParseSeconds(c.Query("startTime"), "startTime")
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	end, errMsg := middleware.ParseSeconds(c.Query("endTime"), "endTime")
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	if start > end {
		return invalidField(c, "startTime must not exceed endTime")
	}
	userID, errMsg := middleware.ValidatePrivateUserID(c.Query("userID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	category, errMsg := middleware.ValidateCategory(c.Query("category"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	resp, err := h.svc.Submit(c.Context(), model.SubmitRequest{
		VideoID:   videoID,
		StartTime: start,
		EndTime:   end,
		Category:  category,
		RawUserID: userID,
		HashedIP:  hash.HashIP(middleware.ClientIP(c), h.ipSalt),
	})
	if err != nil {
		return serviceError(c, err, "submit segment")
	}
	return c.JSON(resp)
}

// Viewed handles POST /api/viewedVideoSponsorTime?UUID=
func (h *SegmentHandler) Viewed(c fiber.Ctx) error {
	uuid, errMsg := middleware.ValidateSegmentUUID(c.Query("UUID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	if err := h.svc.Viewed(c.Context(), uuid); err != nil {
		return serviceError(c, err, "count view")
	}
	return c.SendStatus(fiber.StatusOK)
}

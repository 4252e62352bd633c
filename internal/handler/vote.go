package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

type VoteHandler struct {
	votes      *service.VoteService
	categories *service.CategoryService
	ipSalt     string
}

func NewVoteHandler(votes *service.VoteService, categories *service.CategoryService, ipSalt string) *VoteHandler {
	return &VoteHandler{votes: votes, categories: categories, ipSalt: ipSalt}
}

// Vote handles POST /api/voteOnSponsorTime?UUID&userID&type, or &category
// for a category vote. Suppressed votes get the same empty 200 as accepted
// ones.
func (h *VoteHandler) Vote(c fiber.Ctx) error {
	uuid, errMsg := middleware.ValidateSegmentUUID(c.Query("UUID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	userID, errMsg := middleware.ValidatePrivateUserID(c.Query("userID"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	hashedIP := hash.HashIP(middleware.ClientIP(c), h.ipSalt)

	if category := c.Query("category"); category != "" {
		if !model.Categories[category] {
			return invalidField(c, "category is not recognised")
		}
		err := h.categories.Vote(c.Context(), model.CategoryVoteRequest{
			UUID:      uuid,
			RawUserID: userID,
			HashedIP:  hashedIP,
			Category:  category,
		})
		if err != nil {
			return serviceError(c, err, "record category vote")
		}
		return c.SendStatus(fiber.StatusOK)
	}

	vt, errMsg := middleware.ParseVoteType(c.Query("type"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	if _, err := h.votes.Vote(c.Context(), model.VoteRequest{
		UUID:      uuid,
		RawUserID: userID,
		HashedIP:  hashedIP,
		Type:      vt,
	}); err != nil {
		return serviceError(c, err, "record vote")
	}
	return c.SendStatus(fiber.StatusOK)
}

package middleware

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// Field length limits matching database schema constraints.
const (
	MaxVideoIDLen       = 16  // segments.video_id VARCHAR(16)
	MaxSegmentUUIDLen   = 72  // segments.uuid VARCHAR(72)
	MaxPrivateUserIDLen = 128 // never stored; hashed before use
	PublicUserIDLen     = 64  // hex SHA-256
)

var (
	// videoIDRe matches YouTube video IDs: alphanumeric, dash, underscore.
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// segmentUUIDRe matches SHA-256 hex ids and legacy dashed UUIDs.
	segmentUUIDRe = regexp.MustCompile(`^[0-9a-f-]+$`)
	// hexRe matches lowercase hex strings.
	hexRe = regexp.MustCompile(`^[0-9a-f]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateVideoID checks that a video ID is well-formed and within DB limits.
func ValidateVideoID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "videoID is required"
	}
	if len(id) > MaxVideoIDLen {
		return "", "videoID must be at most 16 characters"
	}
	if !videoIDRe.MatchString(id) {
		return "", "videoID contains invalid characters"
	}
	return id, ""
}

// ValidateSegmentUUID checks a segment identifier.
func ValidateSegmentUUID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "UUID is required"
	}
	if len(id) > MaxSegmentUUIDLen {
		return "", "UUID must be at most 72 characters"
	}
	if !segmentUUIDRe.MatchString(id) {
		return "", "UUID contains invalid characters"
	}
	return id, ""
}

// ValidatePrivateUserID checks the secret id a client sends. It is hashed
// before it reaches storage, so only its shape is checked here.
func ValidatePrivateUserID(id string) (string, string) {
	if id == "" {
		return "", "userID is required"
	}
	if len(id) > MaxPrivateUserIDLen {
		return "", "userID must be at most 128 characters"
	}
	if strings.TrimSpace(id) != id || strings.ContainsFunc(id, isControl) {
		return "", "userID contains invalid characters"
	}
	return id, ""
}

// ValidatePublicUserID checks a hashed user id as shown publicly.
func ValidatePublicUserID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "userID is required"
	}
	if len(id) != PublicUserIDLen || !hexRe.MatchString(id) {
		return "", "userID must be a 64 character hexadecimal hash"
	}
	return id, ""
}

// ParseSeconds parses a timestamp in seconds. NaN, infinities and negative
// values are rejected.
func ParseSeconds(raw, field string) (float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, field + " is required"
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, field + " must be a finite number"
	}
	if f < 0 {
		return 0, field + " must not be negative"
	}
	return f, ""
}

// ValidateCategory defaults an empty category and checks the rest against
// the allowed set.
func ValidateCategory(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DefaultCategory, ""
	}
	if !model.Categories[raw] {
		return "", "category is not recognised"
	}
	return raw, ""
}

// ParseVoteType parses the numeric vote type parameter.
func ParseVoteType(raw string) (model.VoteType, string) {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return model.VoteType{}, "type must be an integer"
	}
	vt, err := model.ParseVoteType(code)
	if err != nil {
		return model.VoteType{}, "type is not a known vote type"
	}
	return vt, ""
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
// Used for user ID hashing (5000 iterations) and IP hashing.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashUserID hashes a contributor's private ID with 5000 iterations of SHA256
// to produce the public user ID stored alongside segments.
func HashUserID(privateID string) string {
	return IteratedSHA256(privateID, 5000)
}

// VoterID derives the per-segment voter identity, so the same person's votes
// on different segments cannot be joined.
func VoterID(privateID, segmentUUID string) string {
	return IteratedSHA256(privateID+segmentUUID, 5000)
}

// HashIP hashes an IP address with a salt using 5000 iterations of SHA256.
func HashIP(ip, salt string) string {
	return IteratedSHA256(ip+salt, 5000)
}

// SegmentUUID is the content-derived segment identifier. Identical
// submissions from the same contributor always produce the same UUID.
func SegmentUUID(videoID string, start, end float64, hashedUserID string) string {
	return SHA256Hex(videoID + formatSeconds(start) + formatSeconds(end) + hashedUserID)
}

func formatSeconds(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

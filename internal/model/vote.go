package model

import "fmt"

// VoteKind identifies a vote variant.
type VoteKind string

const (
	VoteUpvote                      VoteKind = "up"
	VoteDownvote                    VoteKind = "down"
	VoteUndo                        VoteKind = "undo"
	VoteAdjustment                  VoteKind = "adjust"
	VoteIncorrectUpvote             VoteKind = "incorrect_up"
	VoteIncorrectDownvote           VoteKind = "incorrect_down"
	VotePrivilegedIncorrectUpvote   VoteKind = "vip_incorrect_up"
	VotePrivilegedIncorrectDownvote VoteKind = "vip_incorrect_down"
)

// PrivilegedIncorrectWeight is the magnitude of a VIP or owner vote on the
// incorrect channel.
const PrivilegedIncorrectWeight = 500

// VoteChannel is the score column a vote applies to.
type VoteChannel int

const (
	ChannelNone VoteChannel = iota
	ChannelNormal
	ChannelIncorrect
)

// VoteType is a stored or requested vote. Amount is only meaningful for
// VoteAdjustment, where it holds the already-scaled signed delta.
type VoteType struct {
	Kind   VoteKind
	Amount int
}

var (
	Upvote            = VoteType{Kind: VoteUpvote}
	Downvote          = VoteType{Kind: VoteDownvote}
	Undo              = VoteType{Kind: VoteUndo}
	IncorrectUpvote   = VoteType{Kind: VoteIncorrectUpvote}
	IncorrectDownvote = VoteType{Kind: VoteIncorrectDownvote}
)

// Adjustment returns a scaled vote with the given signed delta.
func Adjustment(amount int) VoteType {
	return VoteType{Kind: VoteAdjustment, Amount: amount}
}

// Delta is the contribution this vote makes to its channel's score.
func (v VoteType) Delta() int {
	switch v.Kind {
	case VoteUpvote, VoteIncorrectUpvote:
		return 1
	case VoteDownvote, VoteIncorrectDownvote:
		return -1
	case VoteAdjustment:
		return v.Amount
	case VotePrivilegedIncorrectUpvote:
		return PrivilegedIncorrectWeight
	case VotePrivilegedIncorrectDownvote:
		return -PrivilegedIncorrectWeight
	default:
		return 0
	}
}

// Channel returns the score column the vote counts toward.
func (v VoteType) Channel() VoteChannel {
	switch v.Kind {
	case VoteUpvote, VoteDownvote, VoteAdjustment:
		return ChannelNormal
	case VoteIncorrectUpvote, VoteIncorrectDownvote,
		VotePrivilegedIncorrectUpvote, VotePrivilegedIncorrectDownvote:
		return ChannelIncorrect
	default:
		return ChannelNone
	}
}

// IsDownvote reports whether the vote pushes its channel down.
func (v VoteType) IsDownvote() bool {
	return v.Delta() < 0
}

// Valid reports whether the kind is known.
func (v VoteType) Valid() bool {
	switch v.Kind {
	case VoteUpvote, VoteDownvote, VoteUndo, VoteAdjustment,
		VoteIncorrectUpvote, VoteIncorrectDownvote,
		VotePrivilegedIncorrectUpvote, VotePrivilegedIncorrectDownvote:
		return true
	}
	return false
}

func (v VoteType) String() string {
	if v.Kind == VoteAdjustment {
		return fmt.Sprintf("%s(%d)", v.Kind, v.Amount)
	}
	return string(v.Kind)
}

// ParseVoteType maps the numeric request codes clients send to a vote type.
//
//	0 downvote, 1 upvote, 10 incorrect downvote, 11 incorrect upvote, 20 undo
func ParseVoteType(code int) (VoteType, error) {
	switch code {
	case 0:
		return Downvote, nil
	case 1:
		return Upvote, nil
	case 10:
		return IncorrectDownvote, nil
	case 11:
		return IncorrectUpvote, nil
	case 20:
		return Undo, nil
	}
	return VoteType{}, fmt.Errorf("%w: unknown vote type %d", ErrInvalidInput, code)
}

// VoteRecord is one voter's current stance on one segment.
type VoteRecord struct {
	UUID     string
	VoterID  string
	HashedIP string
	Type     VoteType
}

// VoteRequest is a vote after parameter parsing.
type VoteRequest struct {
	UUID      string
	RawUserID string
	HashedIP  string
	Type      VoteType
}

// VoteResult is what the vote path reports back. Accepted is false when the
// vote was silently suppressed; callers must not expose that to the client.
type VoteResult struct {
	Accepted bool `json:"-"`
	NewScore int  `json:"newScore"`
}

// CategoryVoteRecord is a voter's active category vote on a segment.
type CategoryVoteRecord struct {
	UUID     string
	VoterID  string
	HashedIP string
	Category string
	Weight   int
}

// CategoryVoteRequest is a category vote after parameter parsing.
type CategoryVoteRequest struct {
	UUID      string
	RawUserID string
	HashedIP  string
	Category  string
}

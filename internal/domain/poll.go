package domain

import "time"

// PollOption is one choice of a poll. Option identity is its positional
// index in the poll's options list, fixed at creation.
type PollOption struct {
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// Poll is a multiple-choice poll scoped to a room.
type Poll struct {
	ID         string       `json:"id"`
	RoomID     string       `json:"room_id"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	CreatorID  string       `json:"creator_id"`
	CreatedAt  time.Time    `json:"created_at"`
	TotalVotes int64        `json:"total_votes"`
}

// Vote records one voter's choice on a poll. At most one vote exists per
// (poll, voter) pair.
type Vote struct {
	PollID      string    `json:"poll_id"`
	VoterID     string    `json:"voter_id"`
	OptionIndex int       `json:"option_index"`
	CastAt      time.Time `json:"cast_at"`
}

// CreatePollRequest is the REST body for creating a poll.
type CreatePollRequest struct {
	Question string   `json:"question" binding:"required,min=1,max=500"`
	Options  []string `json:"options" binding:"required,min=2,dive,required"`
}

// CastVoteRequest is the REST body for casting a vote.
// OptionIndex is a pointer so index 0 survives required-field binding.
type CastVoteRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

// OptionResult is the aggregate for one poll option.
type OptionResult struct {
	Text       string `json:"text"`
	Votes      int64  `json:"votes"`
	Percentage string `json:"percentage"`
}

// PollResults is the computed aggregate for a poll.
type PollResults struct {
	PollID     string         `json:"poll_id"`
	Question   string         `json:"question"`
	TotalVotes int64          `json:"total_votes"`
	Results    []OptionResult `json:"results"`
}

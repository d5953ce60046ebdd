package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m-atharkhan/FrClass/internal/audit"
	"github.com/m-atharkhan/FrClass/internal/cache"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

const resultsCacheTTL = 5 * time.Second

type pollService struct {
	polls   repository.PollRepository
	results cache.ResultsCache
	group   singleflight.Group

	// genMu guards gens, a per-poll write counter. Results captures the
	// counter before reading the ledger and refuses to leave a cached
	// aggregate behind if it changed, so a computation that raced a vote
	// can never outlive the vote's invalidation.
	genMu sync.Mutex
	gens  map[string]uint64
}

// NewPollService creates the poll service.
func NewPollService(polls repository.PollRepository, results cache.ResultsCache) PollService {
	return &pollService{
		polls:   polls,
		results: results,
		gens:    make(map[string]uint64),
	}
}

func (s *pollService) generation(pollID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[pollID]
}

func (s *pollService) bumpGeneration(pollID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[pollID]++
}

func (s *pollService) CreatePoll(ctx context.Context, roomID, creatorID string, req *domain.CreatePollRequest) (*domain.Poll, error) {
	if len(req.Options) < 2 {
		return nil, ErrTooFewOptions
	}

	options := make([]domain.PollOption, len(req.Options))
	for i, text := range req.Options {
		options[i] = domain.PollOption{Text: text}
	}

	poll := &domain.Poll{
		RoomID:    roomID,
		Question:  req.Question,
		Options:   options,
		CreatorID: creatorID,
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionCreatePoll, creatorID, poll.ID, "poll created")
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	return s.polls.GetByID(ctx, pollID)
}

func (s *pollService) ListPolls(ctx context.Context, roomID string) ([]domain.Poll, error) {
	return s.polls.ListByRoom(ctx, roomID)
}

func (s *pollService) DeletePoll(ctx context.Context, pollID, userID string) error {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.CreatorID != userID {
		return ErrForbidden
	}

	if err := s.polls.Delete(ctx, pollID); err != nil {
		return err
	}

	s.bumpGeneration(pollID)
	if err := s.results.Delete(ctx, pollID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldPollID, pollID).Msg("failed to drop cached results")
	}

	audit.LogWithDetail(ctx, audit.ActionDeletePoll, userID, pollID, "poll deleted")
	return nil
}

func (s *pollService) CastVote(ctx context.Context, pollID, voterID string, optionIndex int) (*domain.Vote, error) {
	vote, err := s.polls.CastVote(ctx, pollID, voterID, optionIndex)
	if err != nil {
		return nil, err
	}

	// Invalidate after commit so the next Results call recomputes. The
	// bump must precede the delete: a Results computation writing back
	// after this delete will then see the changed generation and drop
	// its stale entry itself.
	s.bumpGeneration(pollID)
	if err := s.results.Delete(ctx, pollID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldPollID, pollID).Msg("failed to invalidate cached results")
	}

	audit.LogWithDetail(ctx, audit.ActionCastVote, voterID, pollID, "vote cast")
	return vote, nil
}

// Results computes the poll aggregate. Concurrent readers of the same poll
// collapse into one computation via singleflight; the result is cached
// briefly and dropped on every accepted vote.
func (s *pollService) Results(ctx context.Context, pollID string) (*domain.PollResults, error) {
	if cached, err := s.results.Get(ctx, pollID); err == nil {
		return cached, nil
	}

	v, err, _ := s.group.Do(pollID, func() (interface{}, error) {
		gen := s.generation(pollID)

		poll, err := s.polls.GetByID(ctx, pollID)
		if err != nil {
			return nil, err
		}

		results := aggregate(poll)
		if err := s.results.Set(ctx, pollID, results, resultsCacheTTL); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldPollID, pollID).Msg("failed to cache results")
		} else if s.generation(pollID) != gen {
			// A vote landed while this aggregate was being computed.
			// Its invalidation may have run before the write above, so
			// drop the entry instead of letting it live out the TTL.
			if err := s.results.Delete(ctx, pollID); err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str(log.FieldPollID, pollID).Msg("failed to drop superseded results")
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PollResults), nil
}

// aggregate derives per-option counts and percentages from the poll's
// embedded counters. With zero votes every option reports "0%".
func aggregate(poll *domain.Poll) *domain.PollResults {
	results := &domain.PollResults{
		PollID:     poll.ID,
		Question:   poll.Question,
		TotalVotes: poll.TotalVotes,
		Results:    make([]domain.OptionResult, len(poll.Options)),
	}

	for i, opt := range poll.Options {
		percentage := "0%"
		if poll.TotalVotes > 0 {
			percentage = fmt.Sprintf("%.2f%%", float64(opt.Votes)/float64(poll.TotalVotes)*100)
		}
		results.Results[i] = domain.OptionResult{
			Text:       opt.Text,
			Votes:      opt.Votes,
			Percentage: percentage,
		}
	}
	return results
}

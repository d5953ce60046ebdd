package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-atharkhan/FrClass/internal/client"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/internal/service"
	"github.com/m-atharkhan/FrClass/pkg/log"
	"github.com/m-atharkhan/FrClass/pkg/middleware"
	"github.com/m-atharkhan/FrClass/pkg/response"
	"github.com/m-atharkhan/FrClass/pkg/storage"
)

const (
	maxAttachmentSize = 10 << 20 // 10 MiB
	attachmentURLTTL  = 24 * time.Hour
)

// Handler handles the REST surface: messages, history, polls, votes,
// results and attachment uploads.
type Handler struct {
	chat           service.ChatService
	polls          service.PollService
	membership     client.MembershipChecker
	store          storage.Storage
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(chat service.ChatService, polls service.PollService, membership client.MembershipChecker, store storage.Storage, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		chat:           chat,
		polls:          polls,
		membership:     membership,
		store:          store,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1", h.authMiddleware.RequireAuth())
	{
		rooms := api.Group("/rooms/:room_id", h.requireMembership())
		{
			rooms.POST("/messages", h.SendMessage)
			rooms.GET("/messages", h.GetHistory)
			rooms.POST("/polls", h.CreatePoll)
			rooms.GET("/polls", h.ListPolls)
		}

		polls := api.Group("/polls")
		{
			polls.GET("/:id", h.GetPoll)
			polls.DELETE("/:id", h.DeletePoll)
			polls.POST("/:id/votes", h.CastVote)
			polls.GET("/:id/results", h.GetResults)
		}

		api.POST("/attachments", h.UploadAttachment)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// requireMembership blocks users who are not enrolled in the class the
// room belongs to.
func (h *Handler) requireMembership() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("room_id")
		userID := middleware.GetUserID(c)

		isMember, err := h.membership.IsMember(c.Request.Context(), roomID, userID)
		if err != nil {
			if errors.Is(err, client.ErrClassNotFound) {
				response.NotFound(c, "room not found")
				c.Abort()
				return
			}
			l := log.Ctx(c.Request.Context())
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("membership check failed")
			response.InternalError(c, "membership check failed")
			c.Abort()
			return
		}
		if !isMember {
			response.Forbidden(c, "not a member of this class")
			c.Abort()
			return
		}

		c.Next()
	}
}

// SendMessage appends a message to the room and fans it out.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")
	userID := middleware.GetUserID(c)
	username := middleware.GetUsername(c)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.chat.Send(ctx, roomID, userID, username, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmptyMessage) {
			response.BadRequest(c, "message needs a body or an attachment")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to send message")
		response.InternalError(c, "failed to send message")
		return
	}

	response.Created(c, msg)
}

// GetHistory returns a forward page of room history.
func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")

	after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil || after < 0 {
		response.BadRequest(c, "invalid after cursor")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		response.BadRequest(c, "invalid limit")
		return
	}

	history, err := h.chat.History(ctx, roomID, after, limit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to read history")
		response.InternalError(c, "failed to read history")
		return
	}

	response.Success(c, history)
}

// CreatePoll creates a poll in the room.
func (h *Handler) CreatePoll(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")
	userID := middleware.GetUserID(c)

	var req domain.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	poll, err := h.polls.CreatePoll(ctx, roomID, userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrTooFewOptions) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to create poll")
		response.InternalError(c, "failed to create poll")
		return
	}

	response.Created(c, poll)
}

// ListPolls lists the room's polls.
func (h *Handler) ListPolls(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")

	polls, err := h.polls.ListPolls(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list polls")
		response.InternalError(c, "failed to list polls")
		return
	}

	response.Success(c, polls)
}

// GetPoll fetches one poll with its current counters.
func (h *Handler) GetPoll(c *gin.Context) {
	ctx := c.Request.Context()

	poll, err := h.polls.GetPoll(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		response.InternalError(c, "failed to fetch poll")
		return
	}

	response.Success(c, poll)
}

// DeletePoll removes a poll. Creator only.
func (h *Handler) DeletePoll(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	pollID := c.Param("id")
	userID := middleware.GetUserID(c)

	err := h.polls.DeletePoll(ctx, pollID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPollNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "only the poll creator may delete it")
		default:
			l.Error().Err(err).Str(log.FieldPollID, pollID).Msg("failed to delete poll")
			response.InternalError(c, "failed to delete poll")
		}
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// CastVote records the caller's vote on a poll.
func (h *Handler) CastVote(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	pollID := c.Param("id")
	userID := middleware.GetUserID(c)

	var req domain.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	vote, err := h.polls.CastVote(ctx, pollID, userID, *req.OptionIndex)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPollNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, repository.ErrInvalidOption):
			response.BadRequest(c, "option index out of range")
		case errors.Is(err, repository.ErrAlreadyVoted):
			response.Conflict(c, "ALREADY_VOTED", "you have already voted on this poll")
		default:
			l.Error().Err(err).Str(log.FieldPollID, pollID).Msg("failed to cast vote")
			response.InternalError(c, "failed to cast vote")
		}
		return
	}

	response.Created(c, vote)
}

// GetResults returns the poll aggregate.
func (h *Handler) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	pollID := c.Param("id")

	results, err := h.polls.Results(ctx, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		l.Error().Err(err).Str(log.FieldPollID, pollID).Msg("failed to compute results")
		response.InternalError(c, "failed to compute results")
		return
	}

	response.Success(c, results)
}

// UploadAttachment stores an uploaded file and returns its key and URL.
// The URL goes into a message's attachment_url field.
func (h *Handler) UploadAttachment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if file.Size > maxAttachmentSize {
		response.BadRequest(c, "file too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer src.Close()

	key := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")

	if err := h.store.Write(ctx, key, src, file.Size, contentType); err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to store attachment")
		response.InternalError(c, "failed to store attachment")
		return
	}

	url, err := h.store.URL(ctx, key, attachmentURLTTL)
	if err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to build attachment url")
		response.InternalError(c, "failed to build attachment url")
		return
	}

	response.Created(c, domain.AttachmentResponse{Key: key, URL: url})
}

package handler

import (
	"context"
	"net/http"

	"committee-live/internal/commands"
	"committee-live/internal/domain/member"
	"committee-live/internal/repository"
	"committee-live/internal/services"
	"committee-live/internal/transport/httpdto"
	committee_errors "committee-live/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveLinker signs download links for archived results
type ArchiveLinker interface {
	URL(ctx context.Context, groupID, eventID, pollID string) (string, error)
}

type ResultsHandler struct {
	polls   *services.PollService
	members repository.MemberRepository
	archive ArchiveLinker
}

// NewResultsHandler serves closed poll results over HTTP. archive may be nil.
func NewResultsHandler(polls *services.PollService, members repository.MemberRepository, archive ArchiveLinker) *ResultsHandler {
	return &ResultsHandler{polls: polls, members: members, archive: archive}
}

type resultsResponse struct {
	services.PollResults
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// Get returns the frozen results of a closed poll with the same visibility as poll:result.
func (h *ResultsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	sapin, ok := services.SAPINFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", committee_errors.CodeUnauthorized))
		return
	}
	groupID := c.Param("groupId")
	pollID, err := uuid.Parse(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid poll id", committee_errors.CodeValidation))
		return
	}

	access, err := h.members.AccessLevel(ctx, groupID, sapin)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if access <= member.AccessNone {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("no access to group", committee_errors.CodeForbidden))
		return
	}

	res, err := h.polls.Results(ctx, commands.PollResultCommand{
		Actor: commands.Actor{GroupID: groupID, SAPIN: sapin, Access: access},
		ID:    pollID.String(),
	})
	if err != nil {
		c.JSON(committee_errors.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), committee_errors.Code(err)))
		return
	}

	out := resultsResponse{PollResults: res}
	if h.archive != nil {
		url, err := h.archive.URL(ctx, groupID, res.EventID, res.ID)
		if err != nil {
			zap.L().Warn("failed to sign results link", zap.String("poll_id", res.ID), zap.Error(err))
		} else {
			out.ArchiveURL = url
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

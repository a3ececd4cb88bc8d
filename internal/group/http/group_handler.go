// Package http provides HTTP handlers for group-related operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/group/http/dto"
	"github.com/allisson/classhub/internal/group/usecase"
	"github.com/allisson/classhub/internal/httputil"
	customValidation "github.com/allisson/classhub/internal/validation"
)

// GroupHandler handles HTTP requests for group operations.
type GroupHandler struct {
	groupUseCase usecase.UseCase
	logger       *slog.Logger
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupUseCase usecase.UseCase, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groupUseCase: groupUseCase,
		logger:       logger,
	}
}

// CreateHandler creates a new group.
// POST /v1/groups - Returns 201 Created with the group metadata.
func (h *GroupHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateGroupRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	group, err := h.groupUseCase.CreateGroup(c.Request.Context(), dto.ToCreateGroupInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToGroupResponse(group))
}

// GetHandler fetches a group by id.
// GET /v1/groups/:id
func (h *GroupHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	group, err := h.groupUseCase.GetGroupByID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

// AddMemberHandler adds a user to a group.
// POST /v1/groups/:id/members - Returns 204 No Content.
func (h *GroupHandler) AddMemberHandler(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.AddMemberRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.groupUseCase.AddMember(c.Request.Context(), groupID, userID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

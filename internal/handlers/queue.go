package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"salon_queue/internal/auth"
	"salon_queue/internal/models"
	"salon_queue/internal/notify"
	"salon_queue/internal/queue"
	"salon_queue/internal/response"
)

// QueueService is what the HTTP layer needs from the queue engine.
type QueueService interface {
	Advance(ctx context.Context) (queue.AdvanceResult, error)
	NotifyNext(ctx context.Context) (notify.Report, error)
	Reset(ctx context.Context) (queue.ResetResult, error)
	GetState(ctx context.Context) (queue.State, error)
	GetStats(ctx context.Context) (queue.Stats, error)
	Join(ctx context.Context, ownerID, email, phone string) (models.QueueEntry, error)
	Remove(ctx context.Context, id string) error
	EntryFor(ctx context.Context, ownerID string) (models.QueueEntry, error)
	SetOpen(ctx context.Context, open bool) error
}

type QueueHandler struct {
	service QueueService
	logger  *logrus.Logger
}

func NewQueueHandler(service QueueService, logger *logrus.Logger) *QueueHandler {
	return &QueueHandler{service: service, logger: logger}
}

// Routes mounts the queue API. authenticate runs on every route, admin only on staff routes.
func Routes(r gin.IRouter, h *QueueHandler, dashboard gin.HandlerFunc, authenticate, admin gin.HandlerFunc) {
	api := r.Group("/api/queue", authenticate)
	{
		api.POST("/join", h.JoinQueueHandler)
		api.GET("/me", h.GetMyEntryHandler)
	}

	staff := api.Group("", admin)
	{
		staff.GET("/state", h.GetQueueStateHandler)
		staff.GET("/stats", h.GetQueueStatsHandler)
		staff.POST("/advance", h.AdvanceQueueHandler)
		staff.POST("/notify-next", h.NotifyNextHandler)
		staff.POST("/reset", h.ResetQueueHandler)
		staff.PUT("/open", h.SetQueueOpenHandler)
		staff.DELETE("/entries/:id", h.RemoveEntryHandler)
		staff.GET("/ws", dashboard)
	}
}

// GetQueueStateHandler godoc
// @Summary		Current queue
// @Description	Active entries ordered by position with decrypted contacts, plus the serving counter
// @Tags			queue-admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	queue.State
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/state [get]
func (h *QueueHandler) GetQueueStateHandler(c *gin.Context) {
	state, err := h.service.GetState(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error loading the queue")
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetQueueStatsHandler godoc
// @Summary		Queue statistics
// @Description	Entries created today, active count and average estimated wait
// @Tags			queue-admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	queue.Stats
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/stats [get]
func (h *QueueHandler) GetQueueStatsHandler(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error loading queue statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdvanceQueueHandler godoc
// @Summary		Serve the next customer
// @Description	Marks position 1 as served, increments the serving counter and renumbers the line. A failed notification is reported as a warning.
// @Tags			queue-admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.AdvanceResponse
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/advance [post]
func (h *QueueHandler) AdvanceQueueHandler(c *gin.Context) {
	res, err := h.service.Advance(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error advancing the queue")
		return
	}

	out := response.AdvanceResponse{
		PartialSuccessResponse: response.PartialSuccessResponse{
			Message: "Queue advanced",
			Warning: res.Warning(),
		},
		CurrentServing: res.CurrentServing,
	}
	if res.Served != nil {
		out.ServedID = res.Served.ID
	}
	c.JSON(http.StatusOK, out)
}

// NotifyNextHandler godoc
// @Summary		Notify the next customer
// @Description	Re-sends the now-serving SMS and email to whoever holds position 1. The queue is not changed.
// @Tags			queue-admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.NotifyResponse
// @Failure		409	{object}	response.ErrorResponse	"EMPTY_QUEUE"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/notify-next [post]
func (h *QueueHandler) NotifyNextHandler(c *gin.Context) {
	report, err := h.service.NotifyNext(c.Request.Context())
	var notifyErr *queue.NotificationError
	if err != nil && !errors.As(err, &notifyErr) {
		h.writeError(c, err, "Error notifying the next customer")
		return
	}

	out := response.NotifyResponse{
		PartialSuccessResponse: response.PartialSuccessResponse{Message: "Notification sent"},
		Results:                make([]response.ChannelResult, 0, len(report.Results)),
	}
	if notifyErr != nil {
		out.Message = "Notification attempted"
		out.Warning = notifyErr.Error()
	}
	if len(report.Results) == 0 {
		out.Message = "No contact details on file"
	}
	for _, r := range report.Results {
		out.Results = append(out.Results, response.ChannelResult{
			Channel: string(r.Channel),
			Success: r.Success,
			Error:   r.Error,
		})
	}
	c.JSON(http.StatusOK, out)
}

type ResetRequest struct {
	Confirm bool `json:"confirm" example:"true"`
}

// ResetQueueHandler godoc
// @Summary		Reset the queue
// @Description	Closes out every active entry and sets the serving counter to 0. Cannot be undone; the body must carry confirm=true.
// @Tags			queue-admin
// @Accept			json
// @Produce		json
// @Param			body	body		ResetRequest	true	"Confirmation"
// @Security		BearerAuth
// @Success		200	{object}	response.ResetResponse
// @Failure		400	{object}	response.ErrorResponse	"CONFIRMATION_REQUIRED"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/reset [post]
func (h *QueueHandler) ResetQueueHandler(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "CONFIRMATION_REQUIRED",
			Message: "Resetting the queue cannot be undone; send {\"confirm\": true}",
		})
		return
	}

	res, err := h.service.Reset(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error resetting the queue")
		return
	}
	h.logger.WithField("by", c.GetString(auth.UserIDKey)).Info("handlers: queue reset")
	c.JSON(http.StatusOK, response.ResetResponse{
		Message:     "Queue reset",
		Deactivated: res.Deactivated,
		ResetAt:     res.ResetAt.Format(time.RFC3339),
	})
}

type SetOpenRequest struct {
	Open *bool `json:"open" binding:"required" example:"true"`
}

// SetQueueOpenHandler godoc
// @Summary		Open or close the queue
// @Description	Controls whether customers may join. Customers already waiting are not affected.
// @Tags			queue-admin
// @Accept			json
// @Produce		json
// @Param			body	body		SetOpenRequest	true	"Desired state"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse
// @Failure		400	{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/open [put]
func (h *QueueHandler) SetQueueOpenHandler(c *gin.Context) {
	var req SetOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := h.service.SetOpen(c.Request.Context(), *req.Open); err != nil {
		h.writeError(c, err, "Error updating the queue status")
		return
	}
	msg := "Queue is now closed"
	if *req.Open {
		msg = "Queue is now open"
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: msg})
}

// RemoveEntryHandler godoc
// @Summary		Remove a queue entry
// @Description	Takes an entry out of the line without serving it; the rest of the line moves up
// @Tags			queue-admin
// @Produce		json
// @Param			id	path		string	true	"Entry ID"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse
// @Failure		400	{object}	response.ErrorResponse	"INVALID_ENTRY_ID"
// @Failure		404	{object}	response.ErrorResponse	"ENTRY_NOT_FOUND"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/entries/{id} [delete]
func (h *QueueHandler) RemoveEntryHandler(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ENTRY_ID",
			Message: "Invalid queue entry id",
		})
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "Error removing the entry")
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Entry removed"})
}

type JoinRequest struct {
	Email string `json:"email" binding:"omitempty,email" example:"ana@example.com"`
	Phone string `json:"phone" binding:"omitempty,max=32" example:"09171234567"`
}

// JoinQueueHandler godoc
// @Summary		Join the queue
// @Description	Appends the caller to the end of the walk-in line. Contact details are used for the now-serving notification.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			body	body		JoinRequest	true	"Contact details"
// @Security		BearerAuth
// @Success		201	{object}	models.QueueEntry
// @Failure		400	{object}	response.ErrorResponse	"VALIDATION_ERROR, QUEUE_INACTIVE or ALREADY_IN_QUEUE"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/join [post]
func (h *QueueHandler) JoinQueueHandler(c *gin.Context) {
	var req JoinRequest
	// An empty body is a join without contact details.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid contact details",
			Details: err.Error(),
		})
		return
	}

	entry, err := h.service.Join(c.Request.Context(), c.GetString(auth.UserIDKey), req.Email, req.Phone)
	if err != nil {
		h.writeError(c, err, "Error joining the queue")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetMyEntryHandler godoc
// @Summary		My place in line
// @Description	The caller's active entry with position and estimated wait
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	models.QueueEntry
// @Failure		404	{object}	response.ErrorResponse	"NOT_IN_QUEUE"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/me [get]
func (h *QueueHandler) GetMyEntryHandler(c *gin.Context) {
	entry, err := h.service.EntryFor(c.Request.Context(), c.GetString(auth.UserIDKey))
	if errors.Is(err, queue.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NOT_IN_QUEUE",
			Message: "You are not in the queue",
		})
		return
	}
	if err != nil {
		h.writeError(c, err, "Error loading your queue entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *QueueHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, queue.ErrEmptyQueue):
		c.JSON(http.StatusConflict, response.ErrorResponse{
			Code:    "EMPTY_QUEUE",
			Message: "No one is waiting in the queue",
		})
	case errors.Is(err, queue.ErrQueueClosed):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "QUEUE_INACTIVE",
			Message: "The queue is not accepting new customers",
		})
	case errors.Is(err, queue.ErrAlreadyQueued):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "ALREADY_IN_QUEUE",
			Message: "You are already in the queue",
		})
	case errors.Is(err, queue.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ENTRY_NOT_FOUND",
			Message: "Queue entry not found",
		})
	case errors.Is(err, queue.ErrStore):
		h.logger.WithError(err).Error("handlers: store failure")
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: message,
			Details: err.Error(),
		})
	default:
		h.logger.WithError(err).Error("handlers: request failed")
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: message,
			Details: err.Error(),
		})
	}
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/internal/service"
	"github.com/uns-cex/matricula-api/pkg/response"
)

// NotificationHandler exposes the dispatch log and transport diagnostics.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List notification dispatch log entries
// @Tags Notifications
// @Produce json
// @Param recipient query string false "Filter by recipient"
// @Param kind query string false "Filter by kind"
// @Param channel query string false "Filter by channel"
// @Param outcome query string false "Filter by outcome"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var filter models.NotificationFilter
	filter.Recipient = c.Query("recipient")
	filter.Kind = models.NotificationKind(strings.ToUpper(c.Query("kind")))
	filter.Channel = models.NotificationChannel(strings.ToUpper(c.Query("channel")))
	filter.Outcome = models.NotificationOutcome(strings.ToUpper(c.Query("outcome")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.notifications.ListLog(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Diagnostics godoc
// @Summary Probe notification transports
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/diagnostics [get]
func (h *NotificationHandler) Diagnostics(c *gin.Context) {
	report := h.notifications.Diagnose(c.Request.Context())
	response.JSON(c, http.StatusOK, report, nil)
}

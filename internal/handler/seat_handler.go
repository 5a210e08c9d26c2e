package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uns-cex/matricula-api/internal/service"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
	"github.com/uns-cex/matricula-api/pkg/response"
)

// SeatHandler exposes the vacancy listing and seat configuration endpoints.
type SeatHandler struct {
	seats *service.SeatService
}

// NewSeatHandler constructs SeatHandler.
func NewSeatHandler(seats *service.SeatService) *SeatHandler {
	return &SeatHandler{seats: seats}
}

// List godoc
// @Summary List vacancies for an academic year
// @Tags Vacancies
// @Produce json
// @Param year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /vacancies [get]
func (h *SeatHandler) List(c *gin.Context) {
	buckets, err := h.seats.List(c.Request.Context(), c.Query("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buckets, nil)
}

// Configure godoc
// @Summary Create or resize a seat bucket
// @Tags Vacancies
// @Accept json
// @Produce json
// @Param payload body service.ConfigureSeatsRequest true "Seat configuration"
// @Success 200 {object} response.Envelope
// @Router /vacancies [put]
func (h *SeatHandler) Configure(c *gin.Context) {
	var req service.ConfigureSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bucket, err := h.seats.Configure(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bucket, nil)
}

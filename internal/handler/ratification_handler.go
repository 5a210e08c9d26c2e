package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uns-cex/matricula-api/internal/service"
	appErrors "github.com/uns-cex/matricula-api/pkg/errors"
	"github.com/uns-cex/matricula-api/pkg/response"
)

// RatificationHandler exposes the yearly ratification campaign endpoints.
type RatificationHandler struct {
	ratifications *service.RatificationService
}

// NewRatificationHandler constructs RatificationHandler.
func NewRatificationHandler(ratifications *service.RatificationService) *RatificationHandler {
	return &RatificationHandler{ratifications: ratifications}
}

// RatifyAllRequest selects the campaign year.
type RatifyAllRequest struct {
	AcademicYear string `json:"academic_year" binding:"required"`
}

// RatifyAll godoc
// @Summary Send the ratification reminder to every active student
// @Tags Ratifications
// @Accept json
// @Produce json
// @Param payload body RatifyAllRequest true "Campaign year"
// @Success 200 {object} response.Envelope
// @Router /ratifications [post]
func (h *RatificationHandler) RatifyAll(c *gin.Context) {
	var req RatifyAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.ratifications.RatifyAll(c.Request.Context(), req.AcademicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// RatifyOne godoc
// @Summary Send the ratification reminder to a single student
// @Tags Ratifications
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body RatifyAllRequest true "Campaign year"
// @Success 200 {object} response.Envelope
// @Router /ratifications/{id} [post]
func (h *RatificationHandler) RatifyOne(c *gin.Context) {
	var req RatifyAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.ratifications.RatifyOne(c.Request.Context(), c.Param("id"), req.AcademicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

package controllers

import (
	"net/http"
	"strconv"

	"faculty-ranker-api/services"
	"faculty-ranker-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FacultyController struct {
	faculty *services.FacultyService
	logger  *zap.Logger
}

func NewFacultyController(faculty *services.FacultyService, logger *zap.Logger) *FacultyController {
	return &FacultyController{faculty: faculty, logger: loggerOrNop(logger)}
}

// RatingsRequest carries the three rating axes. Pointers make a missing
// field distinguishable from an explicit 0.
type RatingsRequest struct {
	Teaching   *float64 `json:"teaching" binding:"required,rating"`
	Correction *float64 `json:"correction" binding:"required,rating"`
	Attendance *float64 `json:"attendance" binding:"required,rating"`
}

func (r RatingsRequest) ratings() services.Ratings {
	return services.Ratings{
		Teaching:   *r.Teaching,
		Correction: *r.Correction,
		Attendance: *r.Attendance,
	}
}

type AddFacultyRequest struct {
	Name        string `json:"name" binding:"required"`
	Department  string `json:"department"`
	Bio         string `json:"bio"`
	ImageURL    string `json:"image_url"`
	ImageTicket string `json:"image_ticket"`
	RatingsRequest
}

// AddFaculty handles POST /faculty
func (h *FacultyController) AddFaculty(c *gin.Context) {
	var req AddFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.faculty.SubmitFaculty(c.Request.Context(), services.SubmitFacultyInput{
		UserID:      c.GetString("userID"),
		Name:        utils.SanitizeInput(req.Name),
		Department:  utils.SanitizeInput(req.Department),
		Bio:         utils.SanitizeInput(req.Bio),
		ImageURL:    req.ImageURL,
		ImageTicket: req.ImageTicket,
		Ratings:     req.ratings(),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Faculty submitted for verification",
		"id":      id,
	})
}

// RateFaculty handles POST /faculty/:id/rate
func (h *FacultyController) RateFaculty(c *gin.Context) {
	var req RatingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	averages, err := h.faculty.RateFaculty(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.ratings())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Rating submitted",
		"averages": averages,
	})
}

// HasRated handles GET /faculty/:id/has-rated
func (h *FacultyController) HasRated(c *gin.Context) {
	rated, err := h.faculty.HasRated(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasRated": rated})
}

// ListFaculty handles GET /faculty?page=&limit=&search=
func (h *FacultyController) ListFaculty(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageLimit)))

	result, err := h.faculty.List(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchFaculty handles GET /faculty/search?q=
func (h *FacultyController) SearchFaculty(c *gin.Context) {
	results, err := h.faculty.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetFaculty handles GET /faculty/:id
func (h *FacultyController) GetFaculty(c *gin.Context) {
	faculty, err := h.faculty.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, faculty)
}

// GetFacultyByName handles GET /faculty/details?name=
func (h *FacultyController) GetFacultyByName(c *gin.Context) {
	faculty, err := h.faculty.GetByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, faculty)
}

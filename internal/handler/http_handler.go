package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/T1mof/team-capacity-service/internal/domain"
	"github.com/T1mof/team-capacity-service/internal/middleware"
	"github.com/T1mof/team-capacity-service/internal/service"
)

const defaultRequestTimeout = 30 * time.Second

type Handler struct {
	service        service.ServiceInterface
	validator      *domain.Validator
	adminToken     string
	requestTimeout time.Duration
	rateLimit      gin.HandlerFunc
}

type Options struct {
	AdminToken     string
	RequestTimeout time.Duration
	// RateLimit необязательный middleware ограничения частоты.
	RateLimit      gin.HandlerFunc
}

func NewHandler(svc service.ServiceInterface, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Handler{
		service:        svc,
		validator:      domain.NewValidator(),
		adminToken:     opts.AdminToken,
		requestTimeout: opts.RequestTimeout,
		rateLimit:      opts.RateLimit,
	}
}

// ErrorResponse структура ответа с ошибкой.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sendError отправляет структурированную ошибку клиенту и логирует её.
func (h *Handler) sendError(c *gin.Context, statusCode int, code, message string) {
	log := slog.Warn
	if statusCode >= http.StatusInternalServerError {
		log = slog.Error
	}
	log("Request error",
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"status", statusCode,
		"error_code", code,
		"message", message,
	)

	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(statusCode, resp)
}

// sendServiceError переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) sendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		h.sendError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
	case errors.Is(err, domain.ErrUnknownLocation):
		h.sendError(c, http.StatusBadRequest, "UNKNOWN_LOCATION", err.Error())
	case errors.Is(err, domain.ErrValidation):
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrTeamExists):
		h.sendError(c, http.StatusConflict, "TEAM_EXISTS", "team_name already exists")
	case errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrHolidayNotFound),
		errors.Is(err, domain.ErrPTONotFound):
		h.sendError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrMissingRoster):
		h.sendError(c, http.StatusUnprocessableEntity, "MISSING_ROSTER", "team has no members")
	case errors.Is(err, context.DeadlineExceeded):
		h.sendError(c, http.StatusGatewayTimeout, "TIMEOUT", "request timed out")
	default:
		h.sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// parseUUID разбирает обязательный UUID и сам отвечает 400 при ошибке.
func (h *Handler) parseUUID(c *gin.Context, value, field string) (uuid.UUID, bool) {
	id, err := h.validator.ValidateUUID(value, field)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// ========================================
// Teams
// ========================================

type memberRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required"`
	Designation      string `json:"designation"`
	Location         string `json:"location" binding:"required"`
	TrackerAccountID string `json:"tracker_account_id"`
}

// CreateTeam обрабатывает POST /team/add.
func (h *Handler) CreateTeam(c *gin.Context) {
	var req struct {
		TeamName string          `json:"team_name" binding:"required"`
		Members  []memberRequest `json:"members" binding:"required,min=1,dive"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	team := &domain.Team{
		TeamName: req.TeamName,
		Members:  make([]domain.Member, len(req.Members)),
	}

	for i, m := range req.Members {
		userID, ok := h.parseUUID(c, m.UserID, "user_id")
		if !ok {
			return
		}

		team.Members[i] = domain.Member{
			UserID:           userID,
			Name:             m.Name,
			Email:            m.Email,
			Designation:      m.Designation,
			Location:         domain.Location(m.Location),
			TrackerAccountID: m.TrackerAccountID,
		}
	}

	if err := h.service.CreateTeam(c.Request.Context(), team); err != nil {
		h.sendServiceError(c, err)
		return
	}

	slog.Info("Team created successfully", "team_name", req.TeamName, "members_count", len(req.Members))
	c.JSON(http.StatusCreated, gin.H{"team": team})
}

// GetTeam обрабатывает GET /team/get?team_id=...
func (h *Handler) GetTeam(c *gin.Context) {
	teamID, ok := h.parseUUID(c, c.Query("team_id"), "team_id")
	if !ok {
		return
	}

	team, err := h.service.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, team)
}

// ListTeams обрабатывает GET /team/list.
func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.service.ListTeams(c.Request.Context())
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// ========================================
// Holidays
// ========================================

// CreateHoliday обрабатывает POST /holidays/add.
func (h *Handler) CreateHoliday(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		Date      string `json:"date" binding:"required"`
		Location  string `json:"location" binding:"required"`
		Hours     int    `json:"hours" binding:"required"`
		Recurring bool   `json:"recurring"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	date, err := h.validator.ParseDate(req.Date, "date")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	holiday := &domain.Holiday{
		Name:      req.Name,
		Date:      date,
		Location:  domain.Location(req.Location),
		Hours:     req.Hours,
		Recurring: req.Recurring,
	}

	if err := h.service.CreateHoliday(c.Request.Context(), holiday); err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"holiday": holiday})
}

// ListHolidays обрабатывает GET /holidays/list?start_date=...&end_date=...&location=...
func (h *Handler) ListHolidays(c *gin.Context) {
	start, err := h.validator.ParseDate(c.Query("start_date"), "start_date")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}
	end, err := h.validator.ParseDate(c.Query("end_date"), "end_date")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}

	rng := domain.NewDateRange(start, end)
	holidays, err := h.service.ListHolidays(c.Request.Context(), domain.Location(c.Query("location")), rng)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holidays": holidays})
}

// DeleteHoliday обрабатывает POST /holidays/delete.
func (h *Handler) DeleteHoliday(c *gin.Context) {
	var req struct {
		HolidayID string `json:"holiday_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	holidayID, ok := h.parseUUID(c, req.HolidayID, "holiday_id")
	if !ok {
		return
	}

	if err := h.service.DeleteHoliday(c.Request.Context(), holidayID); err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": holidayID})
}

// ========================================
// PTO
// ========================================

// CreatePTO обрабатывает POST /pto/add. Новая запись получает статус pending.
func (h *Handler) CreatePTO(c *gin.Context) {
	var req struct {
		UserID        string  `json:"user_id" binding:"required"`
		TeamID        string  `json:"team_id" binding:"required"`
		StartDate     string  `json:"start_date" binding:"required"`
		EndDate       string  `json:"end_date" binding:"required"`
		DurationHours float64 `json:"duration_hours" binding:"required"`
		Type          string  `json:"type" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	userID, ok := h.parseUUID(c, req.UserID, "user_id")
	if !ok {
		return
	}
	teamID, ok := h.parseUUID(c, req.TeamID, "team_id")
	if !ok {
		return
	}
	start, err := h.validator.ParseDate(req.StartDate, "start_date")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	end, err := h.validator.ParseDate(req.EndDate, "end_date")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	record := &domain.PTORecord{
		UserID:        userID,
		TeamID:        teamID,
		StartDate:     start,
		EndDate:       end,
		DurationHours: req.DurationHours,
		Type:          domain.PTOType(req.Type),
		Status:        domain.PTOPending,
	}

	if err := h.service.CreatePTO(c.Request.Context(), record); err != nil {
		h.sendServiceError(c, err)
		return
	}

	slog.Info("PTO requested", "pto_id", record.PTOID, "user_id", userID)
	c.JSON(http.StatusCreated, gin.H{"pto": record})
}

// SetPTOStatus обрабатывает POST /pto/setStatus.
func (h *Handler) SetPTOStatus(c *gin.Context) {
	var req struct {
		PTOID  string `json:"pto_id" binding:"required"`
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ptoID, ok := h.parseUUID(c, req.PTOID, "pto_id")
	if !ok {
		return
	}

	record, err := h.service.SetPTOStatus(c.Request.Context(), ptoID, domain.PTOStatus(req.Status))
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	slog.Info("PTO status changed", "pto_id", ptoID, "status", req.Status)
	c.JSON(http.StatusOK, gin.H{"pto": record})
}

// ========================================
// Analytics
// ========================================

type rangeRequest struct {
	TeamID    string `json:"team_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// bindRange разбирает команду и диапазон запроса. end_date строго позже start_date.
func (h *Handler) bindRange(c *gin.Context, req rangeRequest) (uuid.UUID, domain.DateRange, bool) {
	teamID, ok := h.parseUUID(c, req.TeamID, "team_id")
	if !ok {
		return uuid.Nil, domain.DateRange{}, false
	}

	rng, err := h.validator.ParseRequestRange(req.StartDate, req.EndDate)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return uuid.Nil, domain.DateRange{}, false
	}

	return teamID, rng, true
}

// CalculateFutureCapacity обрабатывает POST /future-capacity/calculate.
func (h *Handler) CalculateFutureCapacity(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	teamID, rng, ok := h.bindRange(c, req)
	if !ok {
		return
	}

	result, err := h.service.CalculateFutureCapacity(c.Request.Context(), teamID, rng)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateTeamworkInsights обрабатывает POST /teamwork-insights/generate.
func (h *Handler) GenerateTeamworkInsights(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	teamID, rng, ok := h.bindRange(c, req)
	if !ok {
		return
	}

	insights, err := h.service.GenerateTeamworkInsights(c.Request.Context(), teamID, rng)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, insights)
}

// QueryTimeTrend обрабатывает POST /time-trend/query.
func (h *Handler) QueryTimeTrend(c *gin.Context) {
	var req struct {
		rangeRequest
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	teamID, rng, ok := h.bindRange(c, req.rangeRequest)
	if !ok {
		return
	}

	scope := domain.TeamScope(teamID)
	if req.UserID != "" {
		userID, ok := h.parseUUID(c, req.UserID, "user_id")
		if !ok {
			return
		}
		scope = domain.MemberScope(teamID, userID)
	}

	trend, err := h.service.QueryTimeTrend(c.Request.Context(), scope, rng)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trend)
}

// ListSnapshots обрабатывает GET /teamwork-insights/snapshots?team_id=...&limit=...
func (h *Handler) ListSnapshots(c *gin.Context) {
	teamID, ok := h.parseUUID(c, c.Query("team_id"), "team_id")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.sendError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	snapshots, err := h.service.ListSnapshots(c.Request.Context(), teamID, limit)
	if err != nil {
		h.sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team_id":   teamID,
		"snapshots": snapshots,
	})
}

// SetupRouter настраивает маршруты для Gin роутера.
func (h *Handler) SetupRouter() *gin.Engine {
	r := gin.Default()

	if h.rateLimit != nil {
		r.Use(h.rateLimit)
	}

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	admin := middleware.AdminAuth(h.adminToken)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Teams
	r.POST("/team/add", h.CreateTeam)
	r.GET("/team/get", h.GetTeam)
	r.GET("/team/list", h.ListTeams)

	// Holidays
	r.POST("/holidays/add", admin, h.CreateHoliday)
	r.GET("/holidays/list", h.ListHolidays)
	r.POST("/holidays/delete", admin, h.DeleteHoliday)

	// PTO
	r.POST("/pto/add", h.CreatePTO)
	r.POST("/pto/setStatus", admin, h.SetPTOStatus)

	// Analytics
	r.POST("/future-capacity/calculate", h.CalculateFutureCapacity)
	r.POST("/teamwork-insights/generate", h.GenerateTeamworkInsights)
	r.GET("/teamwork-insights/snapshots", h.ListSnapshots)
	r.POST("/time-trend/query", h.QueryTimeTrend)

	return r
}

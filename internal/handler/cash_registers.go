package handler

import (
	"net/http"
	"strconv"

	"tillkeeper/internal/apierror"
	"tillkeeper/internal/dto"
	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"
	"tillkeeper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashRegisterHandler struct{ svc service.CashRegisterService }

func NewCashRegisterHandler(svc service.CashRegisterService) *CashRegisterHandler {
	return &CashRegisterHandler{svc: svc}
}

// Active godoc
// @Summary Returns the active register of a desk, expiring it when stale
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param desk_id query int true "Desk ID"
// @Success 200 {object} dto.ActiveRegisterResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/cash-registers/active [get]
func (h *CashRegisterHandler) Active(c *gin.Context) {
	deskID, ok := optionalInt(c, "desk_id")
	if !ok {
		return
	}
	resp, err := h.svc.Active(c.Request.Context(), deskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Open godoc
// @Summary Opens a register on a desk
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenRegisterRequest true "Opening data"
// @Success 201 {object} dto.CashRegisterResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-registers/open [post]
func (h *CashRegisterHandler) Open(c *gin.Context) {
	var req dto.OpenRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Counts the drawer and closes the register
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Param body body dto.CloseRegisterRequest true "Counted cash"
// @Success 200 {object} dto.CashRegisterResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/{id}/close [put]
func (h *CashRegisterHandler) Close(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.CloseRegisterRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), id, actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Expire godoc
// @Summary Expires an active register
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Success 200 {object} dto.CashRegisterResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/{id}/expire [put]
func (h *CashRegisterHandler) Expire(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Expire(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Returns a register by id
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Success 200 {object} dto.CashRegisterResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/{id} [get]
func (h *CashRegisterHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of registers, newest first.
func (h *CashRegisterHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	deskID, ok := optionalInt(c, "desk_id")
	if !ok {
		return
	}
	filter := repository.RegisterFilter{
		DeskID: deskID,
		Status: model.RegisterStatus(c.Query("status")),
	}
	resp, err := h.svc.History(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordTransaction godoc
// @Summary Records a drop, expense, refund or adjustment on an active register
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Param body body dto.RecordTransactionRequest true "Transaction"
// @Success 201 {object} dto.RegisterTransactionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/{id}/transactions [post]
func (h *CashRegisterHandler) RecordTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.RecordTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordTransaction(c.Request.Context(), id, actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalInt parses an integer query parameter. A missing parameter yields
// nil; a malformed one writes a 400 and returns false.
func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" must be an integer"))
		return nil, false
	}
	return &n, true
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	domain "timeaway-backend/internal/domain/request"
	"timeaway-backend/internal/usecase/request"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type RequestHandler struct {
	uc  *request.Usecase
	log *logrus.Entry
}

func NewRequestHandler(uc *request.Usecase, log *logrus.Entry) *RequestHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RequestHandler{uc: uc, log: log}
}

type createRequestReq struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,max=255"`
	StartDate     string `json:"start_date" validate:"required,mmddyyyy"`
	EndDate       string `json:"end_date" validate:"required,mmddyyyy"`
	StartTime     string `json:"start_time" validate:"max=255"`
	EndTime       string `json:"end_time" validate:"max=255"`
	ChargeAgainst string `json:"charge_against" validate:"required,charge"`
	Manager       string `json:"manager" validate:"required,max=255"`
	Status        string `json:"status" validate:"omitempty,status"`
}

// patchRequestReq distinguishes an absent field (nil) from an explicit value.
type patchRequestReq struct {
	Name          *string `json:"name" validate:"omitnil,max=255"`
	Email         *string `json:"email" validate:"omitnil,max=255"`
	StartDate     *string `json:"start_date" validate:"omitnil,mmddyyyy"`
	EndDate       *string `json:"end_date" validate:"omitnil,mmddyyyy"`
	StartTime     *string `json:"start_time" validate:"omitnil,max=255"`
	EndTime       *string `json:"end_time" validate:"omitnil,max=255"`
	ChargeAgainst *string `json:"charge_against" validate:"omitnil,charge"`
	Manager       *string `json:"manager" validate:"omitnil,max=255"`
	Status        *string `json:"status" validate:"omitnil,status"`
}

func (p patchRequestReq) toPatch() (domain.UpdateRequest, []FieldError) {
	var errs []FieldError
	out := domain.UpdateRequest{
		Name:      p.Name,
		Email:     p.Email,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Manager:   p.Manager,
	}
	if p.ChargeAgainst != nil {
		ca, err := domain.ParseChargeAgainst(*p.ChargeAgainst)
		if err != nil {
			errs = append(errs, chargeFieldError())
		} else {
			out.ChargeAgainst = &ca
		}
	}
	if p.Status != nil {
		st, err := domain.ParseStatus(*p.Status)
		if err != nil {
			errs = append(errs, statusFieldError())
		} else {
			out.Status = &st
		}
	}
	return out, errs
}

func statusFieldError() FieldError {
	return FieldError{Field: "status", Message: "must be one of " + joinNames(domain.Statuses)}
}

func chargeFieldError() FieldError {
	return FieldError{Field: "charge_against", Message: "must be one of " + joinNames(domain.ChargeCategories)}
}

func validationFailed(c echo.Context, errs []FieldError) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: errs})
}

func (h *RequestHandler) CreateRequest(c echo.Context) error {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	var errs []FieldError
	ca, err := domain.ParseChargeAgainst(req.ChargeAgainst)
	if err != nil {
		errs = append(errs, chargeFieldError())
	}
	in := request.CreateRequestInput{
		Name:          req.Name,
		Email:         req.Email,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ChargeAgainst: ca,
		Manager:       req.Manager,
	}
	if req.Status != "" {
		if in.Status, err = domain.ParseStatus(req.Status); err != nil {
			errs = append(errs, statusFieldError())
		}
	}
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	res, err := h.uc.Create(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *RequestHandler) ListRequests(c echo.Context) error {
	var (
		in   request.ListInput
		errs []FieldError
	)
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			errs = append(errs, statusFieldError())
		} else {
			in.Status = &st
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "limit", Message: "must be a non-negative integer"})
		} else {
			in.Limit = n
		}
	}
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) GetRequest(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RequestHandler) UpdateRequest(c echo.Context) error {
	var req patchRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	patch, errs := req.toPatch()
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}
	res, err := h.uc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *RequestHandler) DeleteRequest(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

func (h *RequestHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request store error")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

package leavehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/requestctx"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *leave.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Get("/requests", h.handleListByStatus)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/mine", h.handleListMine)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/requests/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/record.pdf", h.handleRecord)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/action", h.handleAction)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.decisionShorthand(leave.DecisionApproved))
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.decisionShorthand(leave.DecisionRejected))
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancel)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, leave.LeaveTypes, middleware.GetRequestID(r.Context()))
}

type submitPayload struct {
	LeaveType string `json:"leaveType" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload submitPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	leaveType, err := leave.ParseLeaveType(payload.LeaveType)
	if payload.LeaveType != "" && err != nil {
		v.Add("leaveType", "Leave Type is not a known leave type")
	}
	start := v.OptionalDate("startDate", payload.StartDate)
	end := v.OptionalDate("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		ApplicantID: user.UserID,
		LeaveType:   leaveType,
		StartDate:   start,
		EndDate:     end,
		Reason:      payload.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	out, err := h.Service.ListMine(r.Context(), user.UserID, leave.Page{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

// handleListByStatus lists every applicant's requests in one status. PENDING when unset.
func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	status := leave.StatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := leave.ParseStatus(raw)
		if err != nil {
			v := shared.NewValidator()
			v.Add("status", "Status is not a known request status")
			v.Reject(w, requestID)
			return
		}
		status = parsed
	}
	page := shared.ParsePagination(r, 100, 500)
	out, err := h.Service.ListByStatus(r.Context(), status, leave.Page{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	out, err := h.Service.ListPending(r.Context(), user.UserID, leave.Page{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	detail, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"), user.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")

	// rendered into a buffer so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := h.Service.WriteRecord(r.Context(), requestID, user.UserID, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "leave-"+requestID+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, &buf); err != nil {
		requestctx.Logger(r.Context(), nil).Warn("write approval record failed", zap.Error(err))
	}
}

type actionPayload struct {
	Decision string `json:"decision" validate:"required"`
	Comments string `json:"comments" validate:"max=500"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload actionPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	decision, err := leave.ParseDecision(payload.Decision)
	if payload.Decision != "" && err != nil {
		v.Add("decision", "Decision must be one of APPROVE, REJECT")
	}
	if v.Reject(w, requestID) {
		return
	}
	h.act(w, r, decision, payload.Comments)
}

type commentsPayload struct {
	Comments string `json:"comments" validate:"max=500"`
}

// decisionShorthand serves /approve and /reject, whose body is optional.
func (h *Handler) decisionShorthand(decision leave.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		var payload commentsPayload
		if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
			if !shared.DecodeJSON(w, r, &payload, requestID) {
				return
			}
		}
		v := shared.NewValidator()
		v.Struct(payload)
		if v.Reject(w, requestID) {
			return
		}
		h.act(w, r, decision, payload.Comments)
	}
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, decision leave.Decision, comments string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	detail, err := h.Service.Act(r.Context(), leave.ActionInput{
		RequestID: chi.URLParam(r, "requestID"),
		ActorID:   user.UserID,
		Decision:  decision,
		Comments:  comments,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cancelled, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "requestID"), user.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, cancelled, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	logger := requestctx.Logger(r.Context(), nil)

	var fieldErr *leave.FieldError
	switch {
	case errors.As(err, &fieldErr):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: fieldErr.Field, Reason: fieldErr.Reason}})
	case errors.Is(err, leave.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request or user not found", requestID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, leave.ErrPermissionDenied):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, leave.ErrConflict):
		w.Header().Set("Retry-After", "1")
		api.Fail(w, http.StatusConflict, "conflict", "request was modified concurrently, retry", requestID)
	case errors.Is(err, leave.ErrConfiguration):
		logger.Error("approval chain misconfigured", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "configuration_error", "no approver is available for this request", requestID)
	default:
		logger.Error("leave operation failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

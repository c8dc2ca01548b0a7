package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourdesk/internal/bookings/service"
	httputil "tourdesk/pkg/http"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/middleware"
	"tourdesk/pkg/model"
	"tourdesk/pkg/token"
)

const (
	pathPending   = "pending"
	pathConfirmed = "confirmed"
	pathStats     = "stats"
	pathCheck     = "check"
)

type BookingHandler struct {
	service service.BookingService
	staff   func(httprouter.Handle) httprouter.Handle
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, verifier token.Verifier, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		staff:   middleware.RequireStaff(verifier, log),
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// Get serves every GET below /api/bookings/. httprouter cannot register the
// static list paths next to the :id wildcard, so they are dispatched here.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case pathPending:
		h.staff(h.listHandle(model.StatusPending))(w, r, ps)
	case pathConfirmed:
		h.staff(h.listHandle(model.StatusConfirmed))(w, r, ps)
	case pathStats:
		h.staff(h.Stats)(w, r, ps)
	case pathCheck:
		h.Check(w, r, ps)
	default:
		h.staff(h.GetByID)(w, r, ps)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) listHandle(status model.Status) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		limit, offset, err := httputil.ExtractLimitOffset(r)
		if err != nil {
			h.writeError(w, "List", err)
			return
		}

		bookings, count, err := h.service.ListByStatus(r.Context(), status, limit, offset)
		if err != nil {
			h.writeError(w, "List", err)
			return
		}

		if err := httputil.WritePaginated(w, bookings, count, limit, offset); err != nil {
			h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
		}
	}
}

// Check is the public lookup by reference and email.
func (h *BookingHandler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	booking, err := h.service.Check(r.Context(), query.Get("reference"), query.Get("email"))
	if err != nil {
		h.writeError(w, "Check", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var details model.ConfirmationDetails
	if err := httputil.DecodeJSON(r, &details); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	booking, err := h.service.Confirm(r.Context(), ps.ByName("id"), &details)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.BookingUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/bookings/", h.Create)
	router.GET("/api/bookings/:id/", h.Get)
	router.PATCH("/api/bookings/:id/confirm/", h.staff(h.Confirm))
	router.PATCH("/api/bookings/:id/", h.staff(h.Update))
	router.DELETE("/api/bookings/:id/", h.staff(h.Delete))
}

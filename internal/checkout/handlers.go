package checkout

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tani/internal/common"
	"github.com/noah-isme/backend-tani/internal/obs"
	"github.com/noah-isme/backend-tani/internal/payment"
	"github.com/noah-isme/backend-tani/internal/pricing"
)

// Handler exposes the checkout service over HTTP.
type Handler struct {
	Svc *Service
	// SubmitMiddleware wraps the order submission route, e.g. with idempotency and
	// rate limiting.
	SubmitMiddleware []func(http.Handler) http.Handler
}

// Routes mounts the checkout endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/plans", h.Plans)
	r.Route("/checkout", func(c chi.Router) {
		c.Get("/delivery-days", h.DeliveryDays)
		c.Post("/delivery-days/toggle", h.ToggleDay)
		c.Post("/summary", h.Summary)
		c.Post("/validate/delivery", h.ValidateDelivery)
		c.Post("/validate/payment", h.ValidatePayment)
		c.With(h.SubmitMiddleware...).Post("/", h.Submit)
	})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return false
	}
	return true
}

// annotate tags the request log with the wizard step and, when the client
// sent one, the plan.
func annotate(r *http.Request, step Step, plan string) {
	obs.Annotate(r.Context(), StepField, step.String())
	if plan = strings.TrimSpace(plan); plan != "" {
		obs.Annotate(r.Context(), PlanField, plan)
	}
}

// Plans lists subscription plans.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.Data(w, http.StatusOK, h.Svc.ListPlans())
}

// DeliveryDays returns the candidate days for ?plan=.
func (h *Handler) DeliveryDays(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	plan := r.URL.Query().Get("plan")
	annotate(r, StepDelivery, plan)
	out, err := h.Svc.DeliveryDays(plan)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) ToggleDay(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ToggleInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	annotate(r, StepDelivery, in.Plan)
	out, err := h.Svc.ToggleDay(in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in struct {
		Package pricing.Package `json:"package"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	obs.Annotate(r.Context(), PlanField, string(in.Package.Plan))
	out, err := h.Svc.Summary(in.Package)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) ValidateDelivery(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in DeliveryInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	annotate(r, StepDelivery, in.Plan)
	if err := h.Svc.ValidateDelivery(in); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in payment.Details
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	annotate(r, StepPayment, "")
	out, err := h.Svc.ValidatePayment(in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Submit places the order. The response body is the bare result object
// rather than a data envelope, matching what checkout clients expect from
// the order processor.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in SubmitInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(common.IdempotencyHeader))
	out, err := h.Svc.Submit(r.Context(), in, key)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, out)
}

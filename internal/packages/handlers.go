package packages

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tani/internal/common"
	"github.com/noah-isme/backend-tani/internal/pricing"
	"github.com/noah-isme/backend-tani/internal/units"
)

// Handler exposes package authoring endpoints.
type Handler struct{}

// Routes mounts the package endpoints on r.
func (h Handler) Routes(r chi.Router) {
	r.Post("/packages/items", h.LineItem)
	r.Post("/packages/value", h.Value)
}

type lineItemRequest struct {
	Product    Product `json:"product"`
	Multiplier int     `json:"multiplier"`
}

type lineItemResponse struct {
	Item pricing.LineItem `json:"item"`
	Unit units.Quantity   `json:"unit"`
}

// LineItem handles POST /api/v1/packages/items: scale one product into a
// package line.
func (h Handler) LineItem(w http.ResponseWriter, r *http.Request) {
	var req lineItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	item, err := NewLineItem(req.Product, req.Multiplier)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, lineItemResponse{
		Item: item,
		Unit: units.ParseUnit(req.Product.Unit),
	})
}

type valueRequest struct {
	Items []pricing.LineItem `json:"items"`
}

type valueResponse struct {
	ItemCount   int     `json:"itemCount"`
	RetailValue float64 `json:"retailValue"`
}

// Value handles POST /api/v1/packages/value: the undiscounted total of a
// package's items.
func (h Handler) Value(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := pricing.CheckItems(req.Items); err != nil {
		errs := common.ValidationErrors{}
		errs.Add("items", itemsMessage)
		common.WriteError(w, common.ValidationFailed(errs))
		return
	}
	d := NewDraft(req.Items...)
	common.Data(w, http.StatusOK, valueResponse{
		ItemCount:   len(req.Items),
		RetailValue: pricing.Round2(d.RetailValue()),
	})
}

var (
	multiplierMessage = fmt.Sprintf("Quantity must be between 1 and %d", MaxMultiplier)
	itemsMessage      = fmt.Sprintf("Item prices and their total must not exceed %.0f", pricing.MaxAmount)
)

func (h Handler) writeError(w http.ResponseWriter, err error) {
	errs := common.ValidationErrors{}
	switch {
	case errors.Is(err, ErrInvalidMultiplier):
		errs.Add("multiplier", multiplierMessage)
	case errors.Is(err, ErrInvalidProduct):
		errs.Add("product", "Product needs a name and a price between 0 and 1000000000")
	default:
		common.WriteError(w, err)
		return
	}
	common.WriteError(w, common.ValidationFailed(errs))
}

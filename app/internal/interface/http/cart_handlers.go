package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domcart "example.com/mechstore/app/internal/domain/cart"
	cartuc "example.com/mechstore/app/internal/usecase/cart"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

type setQuantityRequest struct {
	Quantity *int64 `json:"quantity" validate:"required,gte=0"`
}

type itemOptionsRequest struct {
	PurchaseType *string `json:"purchase_type" validate:"omitempty,oneof=wallet resale"`
	ResalePlanID *string `json:"resale_plan_id"`
	CompanyID    *string `json:"company_id"`
}

type selectionRequest struct {
	PurchaseMode *string `json:"purchase_mode" validate:"omitempty,oneof=wallet resale"`
	CompanyID    *string `json:"company_id"`
}

type discountRequest struct {
	Code string `json:"code" validate:"required"`
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"guest_id": uuid.NewString()})
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.GetCart(r.Context(), sess.Session)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.Clear(r.Context(), sess.Session)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.cartSvc.AddItem(r.Context(), sess.Session, req.ProductID, req.Quantity)
	a.respondView(w, r, http.StatusCreated, view, err)
}

func (a *API) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req setQuantityRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.cartSvc.SetQuantity(r.Context(), sess.Session, chi.URLParam(r, "productID"), *req.Quantity)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleIncrease(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.Increase(r.Context(), sess.Session, chi.URLParam(r, "productID"))
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleDecrease(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.Decrease(r.Context(), sess.Session, chi.URLParam(r, "productID"))
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.RemoveItem(r.Context(), sess.Session, chi.URLParam(r, "productID"))
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleSetItemOptions(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req itemOptionsRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	in := cartuc.OptionsInput{ResalePlanID: req.ResalePlanID, CompanyID: req.CompanyID}
	if req.PurchaseType != nil {
		mode := domcart.PurchaseMode(*req.PurchaseType)
		in.PurchaseType = &mode
	}

	view, err := a.cartSvc.SetItemOptions(r.Context(), sess.Session, chi.URLParam(r, "productID"), in)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req selectionRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	in := cartuc.SelectionInput{CompanyID: req.CompanyID}
	if req.PurchaseMode != nil {
		mode := domcart.PurchaseMode(*req.PurchaseMode)
		in.PurchaseMode = &mode
	}

	view, err := a.cartSvc.SetSelection(r.Context(), sess.Session, in)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req discountRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.cartSvc.ApplyDiscount(r.Context(), sess.Session, req.Code)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleClearDiscount(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.ClearDiscount(r.Context(), sess.Session)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	view, err := a.cartSvc.Refresh(r.Context(), sess.Session)
	a.respondView(w, r, http.StatusOK, view, err)
}

func (a *API) handleMerge(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	res, err := a.cartSvc.Merge(r.Context(), sess.Session, sess.GuestID)
	if err != nil {
		if res == nil {
			a.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, statusFor(err), errorResponse{
			Error: err.Error(),
			Details: map[string]any{
				"cart":   a.mapView(res.View),
				"report": mapReport(res.Report),
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cart":   a.mapView(res.View),
		"report": mapReport(res.Report),
	})
}

func (a *API) respondView(w http.ResponseWriter, r *http.Request, status int, view *cartuc.View, err error) {
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, status, a.mapView(view))
}

package http

import (
	"net/http"

	domcheckout "example.com/mechstore/app/internal/domain/checkout"
)

type checkoutRequest struct {
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	ExtraPhones []string `json:"extra_phones"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())

	var req checkoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := a.checkoutSvc.Checkout(r.Context(), sess.Session, domcheckout.ShippingInput{
		Phone:       req.Phone,
		Address:     req.Address,
		ExtraPhones: req.ExtraPhones,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"payment_url": res.PaymentURL})
}

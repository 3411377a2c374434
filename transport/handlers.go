package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/domain/service"
	"github.com/senharo1981/tdr-store/pkg/infrastructure/geolocation"
)

type Handler struct {
	storefront *service.Storefront
}

type productRequest struct {
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Price      *decimal.Decimal `json:"price"`
	Unit       string           `json:"unit"`
	Image      string           `json:"image"`
	IsFeatured bool             `json:"isFeatured"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type checkoutResponse struct {
	State    model.CheckoutState `json:"state"`
	Session  uuid.UUID           `json:"session"`
	Basket   service.BasketView  `json:"basket"`
	Customer model.CustomerInfo  `json:"customer"`
}

type locationResponse struct {
	Captured bool               `json:"captured"`
	Location *model.Coordinates `json:"location,omitempty"`
	Message  string             `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func Router(storefront *service.Storefront) http.Handler {
	h := &Handler{storefront: storefront}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/health", h.health).Methods(http.MethodGet)
	s.HandleFunc("/contact", h.contact).Methods(http.MethodGet)
	s.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)

	s.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products", h.addProduct).Methods(http.MethodPost)
	s.HandleFunc("/products/featured", h.listFeatured).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}", h.removeProduct).Methods(http.MethodDelete)

	s.HandleFunc("/basket", h.getBasket).Methods(http.MethodGet)
	s.HandleFunc("/basket/items", h.addBasketItem).Methods(http.MethodPost)
	s.HandleFunc("/basket/items/{id}", h.adjustBasketItem).Methods(http.MethodPatch)
	s.HandleFunc("/basket/items/{id}", h.removeBasketItem).Methods(http.MethodDelete)

	s.HandleFunc("/checkout", h.getCheckout).Methods(http.MethodGet)
	s.HandleFunc("/checkout", h.proceed).Methods(http.MethodPost)
	s.HandleFunc("/checkout/customer", h.updateCustomer).Methods(http.MethodPut)
	s.HandleFunc("/checkout/location", h.captureLocation).Methods(http.MethodPost)
	s.HandleFunc("/checkout/confirm", h.confirm).Methods(http.MethodPost)
	s.HandleFunc("/checkout/cancel", h.cancel).Methods(http.MethodPost)

	return logMiddleware(r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"store":  h.storefront.Store().Name,
	})
}

func (h *Handler) contact(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"link": h.storefront.ContactLink()})
}

func (h *Handler) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.storefront.Catalog().Categories())
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.storefront.Browse(q.Get("q"), q.Get("category")))
}

func (h *Handler) listFeatured(w http.ResponseWriter, _ *http.Request) {
	featured := h.storefront.Catalog().Featured()
	if featured == nil {
		featured = []model.Product{}
	}
	writeJSON(w, http.StatusOK, featured)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	product, err := h.storefront.Catalog().AddProduct(model.ProductDraft{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Unit:     req.Unit,
		Image:    req.Image,
		Featured: req.IsFeatured,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"id": product.ID, "name": product.Name}).Info("product added")
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) removeProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.storefront.Catalog().RemoveProduct(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getBasket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.storefront.Checkout().Basket())
}

func (h *Handler) addBasketItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	basket, err := h.storefront.AddToBasket(req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, basket)
}

func (h *Handler) adjustBasketItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	basket, err := h.storefront.AdjustQuantity(mux.Vars(r)["id"], req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, basket)
}

func (h *Handler) removeBasketItem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storefront.RemoveFromBasket(mux.Vars(r)["id"]))
}

func (h *Handler) getCheckout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.checkoutView())
}

func (h *Handler) proceed(w http.ResponseWriter, _ *http.Request) {
	if err := h.storefront.Checkout().Proceed(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.checkoutView())
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req model.CustomerDetails
	if !decode(w, r, &req) {
		return
	}
	if err := h.storefront.Checkout().UpdateCustomer(req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.checkoutView())
}

func (h *Handler) captureLocation(w http.ResponseWriter, r *http.Request) {
	var report geolocation.Report
	if !decode(w, r, &report) {
		return
	}

	res := <-h.storefront.Checkout().CaptureLocation(r.Context(), geolocation.NewReported(report))
	switch {
	case errors.Is(res.Err, service.ErrCustomerInfoLocked), errors.Is(res.Err, service.ErrStaleSession):
		writeError(w, res.Err)
	case res.Err != nil:
		writeJSON(w, http.StatusOK, locationResponse{Message: res.Err.Error()})
	default:
		loc := res.Location
		writeJSON(w, http.StatusOK, locationResponse{Captured: true, Location: &loc})
	}
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	order, err := h.storefront.Checkout().ConfirmOrder(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) cancel(w http.ResponseWriter, _ *http.Request) {
	if err := h.storefront.Checkout().Cancel(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.checkoutView())
}

func (h *Handler) checkoutView() checkoutResponse {
	c := h.storefront.Checkout()
	return checkoutResponse{
		State:    c.State(),
		Session:  c.Session(),
		Basket:   c.Basket(),
		Customer: c.Customer(),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrItemNotInBasket):
		return http.StatusNotFound
	case errors.Is(err, model.ErrProductNameEmpty),
		errors.Is(err, model.ErrProductPriceEmpty),
		errors.Is(err, model.ErrNegativePrice),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, service.ErrMissingDeliveryDetails),
		errors.Is(err, service.ErrBasketEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrCustomerInfoLocked),
		errors.Is(err, service.ErrStaleSession),
		errors.Is(err, service.ErrProductOutOfStock):
		return http.StatusConflict
	case errors.Is(err, service.ErrOrderNotSent):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		log.WithField("err", err).Error("write response status")
	}
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}

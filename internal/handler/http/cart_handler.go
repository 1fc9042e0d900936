package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/checkout"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
)

// CartCookie identifies the visitor's cart session.
const CartCookie = "cart_id"

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      int       `json:"size" validate:"required,gt=0"`
	Color     string    `json:"color"`
}

type UpdateCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      int       `json:"size" validate:"required,gt=0"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
}

type ShippingAddressRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
}

func (a ShippingAddressRequest) toAddress() order.ShippingAddress {
	return order.ShippingAddress{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type CheckoutRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
}

type CartResponse struct {
	Items     []cart.Line     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func toCartResponse(s *cart.Store) CartResponse {
	return CartResponse{Items: s.Lines(), Total: s.Total(), ItemCount: s.ItemCount()}
}

type CartHandler struct {
	sessions  cart.Sessions
	products  product.Service
	checkout  checkout.Service
	metrics   Recorder
	cookieTTL time.Duration
	validate  *validator.Validate
}

func NewCartHandler(sessions cart.Sessions, products product.Service, checkoutSvc checkout.Service, metrics Recorder, cookieTTL time.Duration) *CartHandler {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &CartHandler{
		sessions:  sessions,
		products:  products,
		checkout:  checkoutSvc,
		metrics:   metrics,
		cookieTTL: cookieTTL,
		validate:  newValidator(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Delete("/cart", h.handleClearCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Patch("/cart/items", h.handleUpdateItem)
	router.Delete("/cart/items", h.handleRemoveItem)
	router.With(auth.RequireAuth).Post("/cart/checkout", h.handleCheckout)
}

// openCart resolves the session cookie, issuing a new one when it is absent or malformed.
// On a storage failure it writes the error response and reports false.
func (h *CartHandler) openCart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	var sessionID string
	if c, err := r.Cookie(CartCookie); err == nil {
		if id, err := uuid.FromString(c.Value); err == nil {
			sessionID = id.String()
		}
	}

	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV4()).String()
		http.SetCookie(w, &http.Cookie{
			Name:     CartCookie,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(h.cookieTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	store, err := cart.Open(r.Context(), h.sessions.For(sessionID))
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Failed to load cart")
		respondWithServiceError(w, err, "Failed to load cart")
		return nil, false
	}
	return store, true
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, toCartResponse(store))
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}

	h.metrics.CartOperation("clear")
	respondWithJSON(w, http.StatusOK, toCartResponse(store))
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var requestPayload AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	p, err := h.products.GetProduct(r.Context(), requestPayload.ProductID.String())
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}

	if !offersVariant(p, requestPayload.Size, requestPayload.Color) {
		respondWithServiceError(w, errInvalidVariant, "Failed to add item")
		return
	}

	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	snapshot := cart.ProductSnapshot{
		ID:    p.ID,
		Slug:  p.Slug,
		Name:  p.Name,
		Price: p.Price,
		Image: p.FirstImage(),
	}
	if err := store.AddItem(r.Context(), snapshot, requestPayload.Quantity, requestPayload.Size, requestPayload.Color); err != nil {
		respondWithServiceError(w, err, "Failed to add item")
		return
	}

	h.metrics.CartOperation("add")
	respondWithJSON(w, http.StatusOK, toCartResponse(store))
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var requestPayload UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(r.Context(), requestPayload.ProductID, requestPayload.Size, requestPayload.Color, requestPayload.Quantity); err != nil {
		respondWithServiceError(w, err, "Failed to update item")
		return
	}

	h.metrics.CartOperation("update")
	respondWithJSON(w, http.StatusOK, toCartResponse(store))
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	productID, err := uuid.FromString(q.Get("product_id"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse product_id query parameter")
		respondWithError(w, http.StatusBadRequest, "Invalid product_id parameter")
		return
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid size parameter")
		return
	}

	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	if err := store.RemoveItem(r.Context(), productID, size, q.Get("color")); err != nil {
		respondWithServiceError(w, err, "Failed to remove item")
		return
	}

	h.metrics.CartOperation("remove")
	respondWithJSON(w, http.StatusOK, toCartResponse(store))
}

func (h *CartHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var requestPayload CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	created, err := h.checkout.Checkout(r.Context(), identity.UserID, store, requestPayload.ShippingAddress.toAddress())
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	h.metrics.OrderPlaced(created.Total)
	respondWithJSON(w, http.StatusCreated, created)
}

// offersVariant reports whether the product is sold in the size and color.
// An empty color is accepted for products without a color choice.
func offersVariant(p *product.Product, size int, color string) bool {
	sizeOK := false
	for _, s := range p.Sizes {
		if s == size {
			sizeOK = true
			break
		}
	}
	if !sizeOK {
		return false
	}

	if color == "" {
		return len(p.Colors) == 0
	}
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}

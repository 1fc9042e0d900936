package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/checkout"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"

	storefrontHTTP "github.com/vasiliy-maslov/kaybirks-storefront/internal/handler/http"
)

type shop struct {
	router   http.Handler
	products *product.MemoryRepository
	orders   *order.MemoryRepository
	recorder *recordingRecorder
	arizona  *product.Product
}

func newShop(t *testing.T) *shop {
	t.Helper()
	ctx := context.Background()

	products := product.NewMemoryRepository()
	arizona := &product.Product{
		Slug:   "arizona",
		Name:   "Arizona",
		Price:  decimal.NewFromInt(50),
		Images: []string{"/img/arizona.jpg"},
		Sizes:  []int{38, 40},
		Colors: []string{"black"},
		Stock:  10,
	}
	require.NoError(t, products.Create(ctx, arizona))

	orders := order.NewMemoryRepository(products)
	orderSvc := order.NewService(orders, order.DefaultShippingPolicy())
	productSvc := product.NewService(products, review.NewMemoryRepository(nil))
	recorder := &recordingRecorder{}

	router := newTestRouter(
		storefrontHTTP.NewCartHandler(cart.NewMemorySessions(), productSvc, checkout.NewService(orderSvc), recorder, time.Hour),
	)

	return &shop{router: router, products: products, orders: orders, recorder: recorder, arizona: arizona}
}

func cartCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == storefrontHTTP.CartCookie {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", storefrontHTTP.CartCookie)
	return nil
}

func decodeCart(t *testing.T, body []byte) storefrontHTTP.CartResponse {
	t.Helper()
	var resp storefrontHTTP.CartResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

const checkoutBody = `{"shipping_address":{"first_name":"Ada","last_name":"Lovelace","address":"1 Main St","city":"London","postal_code":"N1","country":"UK"}}`

func TestCartHandler_CheckoutFlow(t *testing.T) {
	s := newShop(t)
	addBody := `{"product_id":"` + s.arizona.ID.String() + `","quantity":1,"size":40,"color":"black"}`

	rr := doRequest(t, s.router, http.MethodPost, "/api/cart/items", addBody, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := cartCookie(t, rr.Result())
	assert.True(t, cookie.HttpOnly)

	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/items", addBody, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Result().Cookies(), "an existing session keeps its cookie")

	got := decodeCart(t, rr.Body.Bytes())
	require.Len(t, got.Items, 1, "same product, size and color merge into one line")
	assert.Equal(t, 2, got.ItemCount)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "/img/arizona.jpg", got.Items[0].Product.Image)

	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/checkout", checkoutBody, "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, userID := tokenFor(t, user.RoleUser)
	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/checkout", checkoutBody, token, cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var placed order.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &placed))
	assert.Equal(t, userID, placed.UserID)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.True(t, placed.Total.Equal(decimal.NewFromInt(100)), "100 qualifies for free shipping")
	assert.True(t, placed.ShippingCost.IsZero())

	stored, err := s.products.GetByID(context.Background(), s.arizona.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Stock)

	rr = doRequest(t, s.router, http.MethodGet, "/api/cart", "", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeCart(t, rr.Body.Bytes()).Items)

	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/checkout", checkoutBody, token, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"cart is empty"}`, rr.Body.String())

	require.Len(t, s.recorder.orders, 1)
	assert.Equal(t, []string{"add", "add"}, s.recorder.cartOps)
}

func TestCartHandler_CheckoutInsufficientStockKeepsCart(t *testing.T) {
	s := newShop(t)
	addBody := `{"product_id":"` + s.arizona.ID.String() + `","quantity":11,"size":38,"color":"black"}`

	rr := doRequest(t, s.router, http.MethodPost, "/api/cart/items", addBody, "")
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := cartCookie(t, rr.Result())

	token, _ := tokenFor(t, user.RoleUser)
	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/checkout", checkoutBody, token, cookie)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, s.router, http.MethodGet, "/api/cart", "", "", cookie)
	assert.Equal(t, 11, decodeCart(t, rr.Body.Bytes()).ItemCount)

	stored, err := s.products.GetByID(context.Background(), s.arizona.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Stock)
	assert.Empty(t, s.recorder.orders)
}

func TestCartHandler_Mutations(t *testing.T) {
	s := newShop(t)
	id := s.arizona.ID.String()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "size not offered", body: `{"product_id":"` + id + `","quantity":1,"size":41,"color":"black"}`, expectedStatus: http.StatusBadRequest},
		{name: "color not offered", body: `{"product_id":"` + id + `","quantity":1,"size":40,"color":"red"}`, expectedStatus: http.StatusBadRequest},
		{name: "zero quantity", body: `{"product_id":"` + id + `","quantity":0,"size":40,"color":"black"}`, expectedStatus: http.StatusBadRequest},
		{name: "unknown product", body: `{"product_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","quantity":1,"size":40,"color":"black"}`, expectedStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s.router, http.MethodPost, "/api/cart/items", tt.body, "")
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}

	rr := doRequest(t, s.router, http.MethodPost, "/api/cart/items", `{"product_id":"`+id+`","quantity":1,"size":40,"color":"black"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := cartCookie(t, rr.Result())

	rr = doRequest(t, s.router, http.MethodPost, "/api/cart/items", `{"product_id":"`+id+`","quantity":1,"size":38,"color":"black"}`, "", cookie)
	require.Len(t, decodeCart(t, rr.Body.Bytes()).Items, 2, "a different size is a separate line")

	rr = doRequest(t, s.router, http.MethodPatch, "/api/cart/items", `{"product_id":"`+id+`","size":40,"color":"black","quantity":5}`, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 6, decodeCart(t, rr.Body.Bytes()).ItemCount)

	rr = doRequest(t, s.router, http.MethodPatch, "/api/cart/items", `{"product_id":"`+id+`","size":40,"color":"black","quantity":0}`, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeCart(t, rr.Body.Bytes()).ItemCount)

	rr = doRequest(t, s.router, http.MethodDelete, "/api/cart/items?product_id="+id+"&size=38&color=black", "", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeCart(t, rr.Body.Bytes()).Items)

	rr = doRequest(t, s.router, http.MethodDelete, "/api/cart/items?product_id=bad&size=38", "", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s.router, http.MethodDelete, "/api/cart", "", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCartHandler_MalformedCookieStartsNewSession(t *testing.T) {
	s := newShop(t)

	rr := doRequest(t, s.router, http.MethodGet, "/api/cart", "", "", &http.Cookie{Name: storefrontHTTP.CartCookie, Value: "../../etc"})
	require.Equal(t, http.StatusOK, rr.Code)

	cookie := cartCookie(t, rr.Result())
	assert.NotEqual(t, "../../etc", cookie.Value)
	assert.Empty(t, decodeCart(t, rr.Body.Bytes()).Items)
}

type unavailableSessions struct{}

func (unavailableSessions) For(string) cart.Persister { return unavailablePersister{} }

type unavailablePersister struct{}

func (unavailablePersister) Load(context.Context) ([]cart.Line, error) {
	return nil, errors.New("i/o timeout")
}

func (unavailablePersister) Save(context.Context, []cart.Line) error {
	return errors.New("save must not be reached")
}

func TestCartHandler_StorageUnavailable(t *testing.T) {
	s := newShop(t)
	recorder := &recordingRecorder{}
	router := newTestRouter(
		storefrontHTTP.NewCartHandler(unavailableSessions{}, product.NewService(s.products, review.NewMemoryRepository(nil)), nil, recorder, time.Hour),
	)
	addBody := `{"product_id":"` + s.arizona.ID.String() + `","quantity":1,"size":40,"color":"black"}`

	rr := doRequest(t, router, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to load cart"}`, rr.Body.String())

	rr = doRequest(t, router, http.MethodPost, "/api/cart/items", addBody, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to load cart"}`, rr.Body.String())
	assert.Empty(t, recorder.cartOps)
}

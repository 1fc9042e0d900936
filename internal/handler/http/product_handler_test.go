package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"

	storefrontHTTP "github.com/vasiliy-maslov/kaybirks-storefront/internal/handler/http"
)

const validProductBody = `{
	"slug": "arizona-soft",
	"name": "Arizona Soft",
	"description": "Two-strap classic",
	"price": 89.99,
	"images": ["/img/arizona.jpg"],
	"sizes": [38, 39, 40],
	"colors": ["black", "taupe"],
	"category": "sandals",
	"stock": 12,
	"featured": true,
	"tags": ["summer"]
}`

func TestProductHandler_List_PassesParsedFilter(t *testing.T) {
	mockService := new(MockProductService)
	router := newTestRouter(storefrontHTTP.NewProductHandler(mockService))

	listed := []product.Product{{ID: uuid.Must(uuid.NewV4()), Slug: "arizona", Reviews: []review.Review{}}}
	mockService.On("ListProducts", mock.Anything, mock.MatchedBy(func(f product.Filter) bool {
		return f.Category == "sandals" &&
			f.Sort == product.SortPriceAsc &&
			len(f.Sizes) == 2 && f.Sizes[0] == 38 && f.Sizes[1] == 40 &&
			f.InStock &&
			f.MinPrice != nil && f.MinPrice.Equal(decimal.NewFromInt(50))
	})).Return(listed, nil).Once()

	rr := doRequest(t, router, http.MethodGet, "/api/products?category=sandals&sort=price-asc&sizes=38,40&inStock=true&minPrice=50", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp []product.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "arizona", resp[0].Slug)
	mockService.AssertExpectations(t)
}

func TestProductHandler_Get(t *testing.T) {
	mockService := new(MockProductService)
	router := newTestRouter(storefrontHTTP.NewProductHandler(mockService))

	mockService.On("GetProduct", mock.Anything, "arizona").Return(&product.Product{Slug: "arizona"}, nil).Once()
	mockService.On("GetProduct", mock.Anything, "missing").Return(nil, product.ErrProductNotFound).Once()

	rr := doRequest(t, router, http.MethodGet, "/api/products/arizona", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/api/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"product not found"}`, rr.Body.String())

	mockService.AssertExpectations(t)
}

func TestProductHandler_Create(t *testing.T) {
	adminToken, _ := tokenFor(t, user.RoleAdmin)
	userToken, _ := tokenFor(t, user.RoleUser)

	tests := []struct {
		name           string
		token          string
		body           string
		setupMock      func(m *MockProductService)
		expectedStatus int
	}{
		{
			name:           "anonymous",
			body:           validProductBody,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "regular user",
			token:          userToken,
			body:           validProductBody,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "bad slug",
			token:          adminToken,
			body:           `{"slug":"Not A Slug","name":"Arizona","description":"d","price":10,"images":["a"],"sizes":[40],"colors":["black"],"category":"c","stock":1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "sub-cent price reaches the service unrounded",
			token: adminToken,
			body:  `{"slug":"arizona","name":"Arizona","description":"d","price":19.999,"images":["a"],"sizes":[40],"colors":["black"],"category":"c","stock":1}`,
			setupMock: func(m *MockProductService) {
				m.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in product.Input) bool {
					return in.Price.Equal(decimal.RequireFromString("19.999"))
				})).Return(nil, product.ErrInvalidProduct).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "slug taken",
			token: adminToken,
			body:  validProductBody,
			setupMock: func(m *MockProductService) {
				m.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, product.ErrSlugExists).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:  "created",
			token: adminToken,
			body:  validProductBody,
			setupMock: func(m *MockProductService) {
				m.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in product.Input) bool {
					return in.Slug == "arizona-soft" && in.Price.Equal(decimal.RequireFromString("89.99")) && in.Stock == 12
				})).Return(&product.Product{ID: uuid.Must(uuid.NewV4()), Slug: "arizona-soft"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			router := newTestRouter(storefrontHTTP.NewProductHandler(mockService))

			rr := doRequest(t, router, http.MethodPost, "/api/products", tt.body, tt.token)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_UpdateAndDelete(t *testing.T) {
	adminToken, _ := tokenFor(t, user.RoleAdmin)
	mockService := new(MockProductService)
	router := newTestRouter(storefrontHTTP.NewProductHandler(mockService))

	id := uuid.Must(uuid.NewV4())
	mockService.On("UpdateProduct", mock.Anything, id, mock.Anything).Return(&product.Product{ID: id}, nil).Once()
	mockService.On("DeleteProduct", mock.Anything, id).Return(nil).Once()

	rr := doRequest(t, router, http.MethodPut, "/api/products/"+id.String(), validProductBody, adminToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, "/api/products/"+id.String(), "", adminToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, "/api/products/not-a-uuid", "", adminToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	mockService.AssertExpectations(t)
}

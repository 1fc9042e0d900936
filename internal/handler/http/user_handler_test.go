package http_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"

	storefrontHTTP "github.com/vasiliy-maslov/kaybirks-storefront/internal/handler/http"
)

func TestUserHandler_SignUp_Success(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(storefrontHTTP.NewUserHandler(mockService, testIssuer))

	created := &user.User{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      "Ada",
		Email:     "ada@example.com",
		Role:      user.RoleUser,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	mockService.On("SignUp", mock.Anything, "Ada", "ada@example.com", "secret12").Return(created, nil).Once()

	rr := doRequest(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"secret12"}`, "")

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp storefrontHTTP.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.User.ID)
	assert.Equal(t, user.RoleUser, resp.User.Role)

	identity, err := testIssuer.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, identity.UserID)
	assert.NotContains(t, rr.Body.String(), "password")

	mockService.AssertExpectations(t)
}

func TestUserHandler_SignUp_ValidationFailed(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(storefrontHTTP.NewUserHandler(mockService, testIssuer))

	rr := doRequest(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"A","email":"not-an-email","password":"short"}`, "")

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp storefrontHTTP.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Error)
	assert.ElementsMatch(t, []string{
		"Field 'Name' must be at least 2",
		"Field 'Email' must be a valid email address",
		"Field 'Password' must be at least 7",
	}, resp.Details)

	mockService.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserHandler_SignUp_UnknownField(t *testing.T) {
	router := newTestRouter(storefrontHTTP.NewUserHandler(new(MockUserService), testIssuer))

	rr := doRequest(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"secret12","role":"ADMIN"}`, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_SignUp_EmailExists(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(storefrontHTTP.NewUserHandler(mockService, testIssuer))

	mockService.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, user.ErrEmailExists).Once()

	rr := doRequest(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"secret12"}`, "")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"email already exists"}`, rr.Body.String())
}

func TestUserHandler_Login(t *testing.T) {
	u := &user.User{ID: uuid.Must(uuid.NewV4()), Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin}

	tests := []struct {
		name           string
		serviceUser    *user.User
		serviceErr     error
		expectedStatus int
	}{
		{name: "valid credentials", serviceUser: u, expectedStatus: http.StatusOK},
		{name: "invalid credentials", serviceErr: user.ErrInvalidCredentials, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockUserService)
			router := newTestRouter(storefrontHTTP.NewUserHandler(mockService, testIssuer))

			if tt.serviceUser != nil {
				mockService.On("Authenticate", mock.Anything, "ada@example.com", "secret12").Return(tt.serviceUser, nil).Once()
			} else {
				mockService.On("Authenticate", mock.Anything, "ada@example.com", "secret12").Return(nil, tt.serviceErr).Once()
			}

			rr := doRequest(t, router, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"secret12"}`, "")
			assert.Equal(t, tt.expectedStatus, rr.Code)

			if tt.expectedStatus == http.StatusOK {
				var resp storefrontHTTP.AuthResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				identity, err := testIssuer.Verify(resp.Token)
				require.NoError(t, err)
				assert.True(t, identity.IsAdmin())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Me(t *testing.T) {
	mockService := new(MockUserService)
	router := newTestRouter(storefrontHTTP.NewUserHandler(mockService, testIssuer))

	rr := doRequest(t, router, http.MethodGet, "/api/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/api/users/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, id := tokenFor(t, user.RoleUser)
	mockService.On("GetUserByID", mock.Anything, id).Return(&user.User{ID: id, Name: "Ada", Email: "ada@example.com", Role: user.RoleUser}, nil).Once()

	rr = doRequest(t, router, http.MethodGet, "/api/users/me", "", token)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp storefrontHTTP.UserResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "ada@example.com", resp.Email)
	mockService.AssertExpectations(t)
}

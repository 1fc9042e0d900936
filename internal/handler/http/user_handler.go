package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=7"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type UserHandler struct {
	service  user.Service
	issuer   *auth.Issuer
	validate *validator.Validate
}

func NewUserHandler(service user.Service, issuer *auth.Issuer) *UserHandler {
	return &UserHandler{
		service:  service,
		issuer:   issuer,
		validate: newValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/signup", h.handleSignUp)
	router.Post("/auth/login", h.handleLogin)
	router.With(auth.RequireAuth).Get("/users/me", h.handleMe)
}

func (h *UserHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var requestPayload SignUpRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	createdUser, err := h.service.SignUp(r.Context(), requestPayload.Name, requestPayload.Email, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to sign up")
		return
	}

	h.respondWithToken(w, http.StatusCreated, createdUser)
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	u, err := h.service.Authenticate(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}

	h.respondWithToken(w, http.StatusOK, u)
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	u, err := h.service.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) respondWithToken(w http.ResponseWriter, code int, u *user.User) {
	token, err := h.issuer.Issue(u)
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("Failed to issue token")
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondWithJSON(w, code, AuthResponse{Token: token, User: toUserResponse(u)})
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
)

type SubmitReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" validate:"required"`
}

type ReviewHandler struct {
	service  review.Service
	validate *validator.Validate
}

func NewReviewHandler(service review.Service) *ReviewHandler {
	return &ReviewHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ReviewHandler) RegisterRoutes(router chi.Router) {
	router.Get("/reviews", h.handleListReviews)
	router.With(auth.RequireAuth).Post("/reviews", h.handleSubmitReview)
	router.With(auth.RequireAuth).Delete("/reviews/{id}", h.handleDeleteReview)
}

func (h *ReviewHandler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	var productID *uuid.UUID
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product_id parameter")
			return
		}
		productID = &id
	}

	reviews, err := h.service.ListByProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list reviews")
		return
	}

	respondWithJSON(w, http.StatusOK, reviews)
}

// handleSubmitReview answers 201 for a first review and 200 when it replaced an earlier one.
func (h *ReviewHandler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var requestPayload SubmitReviewRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())

	rv, created, err := h.service.Submit(r.Context(), identity.UserID, review.SubmitInput{
		ProductID: requestPayload.ProductID,
		Rating:    requestPayload.Rating,
		Comment:   requestPayload.Comment,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to submit review")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, rv)
}

func (h *ReviewHandler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.service.Delete(r.Context(), identity, reviewID); err != nil {
		respondWithServiceError(w, err, "Failed to delete review")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

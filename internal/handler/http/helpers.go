package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/checkout"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

var errInvalidVariant = errors.New("selected size or color is not available for this product")

type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, review.ErrInvalidReview),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, errInvalidVariant):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrForbidden),
		errors.Is(err, review.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, review.ErrProductNotFound),
		errors.Is(err, review.ErrReviewNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, product.ErrSlugExists),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError maps a service error to its status. Client errors carry
// the error text; anything unexpected is logged and answered with fallback.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, statusCode, fallback)
		return
	}

	log.Debug().Err(err).Int("status", statusCode).Msg("request rejected")
	respondWithError(w, statusCode, err.Error())
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register slug validation: %v", err))
	}
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("Field '%s' is required", fe.Field())
		case "email":
			msg = fmt.Sprintf("Field '%s' must be a valid email address", fe.Field())
		case "min":
			msg = fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param())
		case "max":
			msg = fmt.Sprintf("Field '%s' must be at most %s", fe.Field(), fe.Param())
		case "gt":
			msg = fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
		case "gte":
			msg = fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
		case "slug":
			msg = fmt.Sprintf("Field '%s' must contain lowercase letters, digits and single dashes", fe.Field())
		case "url":
			msg = fmt.Sprintf("Field '%s' must be a valid URL", fe.Field())
		case "oneof":
			msg = fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("Field '%s' failed on the '%s' rule", fe.Field(), fe.Tag())
		}
		details = append(details, msg)
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	if err := v.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/cart/internal"
	"github.com/Alturino/cart/internal/constants"
	inErrors "github.com/Alturino/cart/internal/errors"
	inHttp "github.com/Alturino/cart/internal/http"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/internal/service"
	"github.com/Alturino/cart/pkg/request"
)

type CartController struct {
	service  *service.CartService
	validate *validator.Validate
}

func AttachCartController(router *mux.Router, svc *service.CartService) {
	controller := CartController{
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := router.PathPrefix("/carts").Subrouter()
	r.HandleFunc("", controller.FindCart).Methods(http.MethodGet)
	r.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/count", controller.CountItems).Methods(http.MethodGet)
	r.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{cartItemId}", controller.UpdateItemQuantity).Methods(http.MethodPut)
	r.HandleFunc("/items/{cartItemId}", controller.RemoveItem).Methods(http.MethodDelete)
	r.HandleFunc("/checkout/validation", controller.ValidateCheckout).Methods(http.MethodPost)
	r.HandleFunc("/merge", controller.MergeCart).Methods(http.MethodPost)
}

// identityFromRequest prefers the authenticated account from the verified
// JWT; otherwise the caller must carry a session token header.
func identityFromRequest(r *http.Request) (service.Identity, error) {
	if _, ok := internal.JwtTokenFromContext(r.Context()); ok {
		accountId, err := internal.AccountIdFromJwtToken(r.Context())
		if err != nil {
			return service.Identity{}, err
		}
		return service.Authenticated(accountId), nil
	}
	sessionId := r.Header.Get(constants.HEADER_SESSION)
	if sessionId == "" {
		return service.Identity{}, fmt.Errorf(
			"missing %s header with error=%w",
			constants.HEADER_SESSION,
			inErrors.ErrCartNotFound,
		)
	}
	return service.Anonymous(sessionId), nil
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrCartNotFound),
		errors.Is(err, inErrors.ErrItemNotFound),
		errors.Is(err, inErrors.ErrProductNotFound),
		errors.Is(err, inErrors.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrAuthenticationRequired),
		errors.Is(err, inErrors.ErrTokenInvalid),
		errors.Is(err, inErrors.ErrEmptyAuth):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrCartLimitExceeded),
		errors.Is(err, inErrors.ErrQuantityLimitExceeded),
		errors.Is(err, inErrors.ErrStockInsufficient),
		errors.Is(err, inErrors.ErrProductInactive),
		errors.Is(err, inErrors.ErrVariantInactive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(c context.Context, w http.ResponseWriter, err error) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCodeFor(err),
		"message":    err.Error(),
	})
}

func (t CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController FindCart").
		Logger()

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	c = logger.WithContext(c)
	found, err := t.service.FindCart(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       found,
	})
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController AddItem").
		Logger()

	logger = logger.With().Str(log.KEY_PROCESS, "decoding requestbody").Logger()
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	logger = logger.With().Str(log.KEY_PROCESS, "validating requestbody").Logger()
	if err := t.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().Str(log.KEY_PROCESS, "adding item").Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	updated, err := t.service.AddItem(c, id, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("added item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       updated,
	})
}

func (t CartController) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItemQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController UpdateItemQuantity").
		Logger()

	cartItemId, err := uuid.Parse(mux.Vars(r)["cartItemId"])
	if err != nil {
		err = fmt.Errorf("failed parsing cartItemId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	reqBody := request.UpdateItemQuantity{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	if err := t.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().
		Str(log.KEY_PROCESS, "updating item quantity").
		Str(log.KEY_CART_ITEM_ID, cartItemId.String()).
		Logger()
	logger.Info().Msg("updating item quantity")
	c = logger.WithContext(c)
	updated, err := t.service.UpdateItemQuantity(c, id, cartItemId, reqBody.Quantity)
	if err != nil {
		err = fmt.Errorf("failed updating item quantity with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("updated item quantity")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       updated,
	})
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController RemoveItem").
		Logger()

	cartItemId, err := uuid.Parse(mux.Vars(r)["cartItemId"])
	if err != nil {
		err = fmt.Errorf("failed parsing cartItemId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().
		Str(log.KEY_PROCESS, "removing item").
		Str(log.KEY_CART_ITEM_ID, cartItemId.String()).
		Logger()
	logger.Info().Msg("removing item")
	c = logger.WithContext(c)
	updated, err := t.service.RemoveItem(c, id, cartItemId)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("removed item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       updated,
	})
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController ClearCart").
		Logger()

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().Str(log.KEY_PROCESS, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	c = logger.WithContext(c)
	err = t.service.ClearCart(c, id)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("cleared cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
	})
}

func (t CartController) CountItems(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController CountItems")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController CountItems").
		Logger()

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	c = logger.WithContext(c)
	count := t.service.CountItems(c, id)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       map[string]int{"itemCount": count},
	})
}

func (t CartController) ValidateCheckout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ValidateCheckout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController ValidateCheckout").
		Logger()

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().Str(log.KEY_PROCESS, "validating checkout").Logger()
	logger.Info().Msg("validating checkout")
	c = logger.WithContext(c)
	result, err := t.service.ValidateCheckout(c, id)
	if err != nil {
		err = fmt.Errorf("failed validating checkout with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("validated checkout")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       result,
	})
}

func (t CartController) MergeCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController MergeCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartController MergeCart").
		Logger()

	reqBody := request.MergeCart{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	if err := t.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}

	id, err := identityFromRequest(r)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}

	logger = logger.With().
		Str(log.KEY_PROCESS, "merging session cart").
		Str(log.KEY_SESSION_ID, reqBody.SessionId).
		Logger()
	logger.Info().Msg("merging session cart")
	c = logger.WithContext(c)
	merged, err := t.service.MergeSessionIntoAccount(c, reqBody.SessionId, id)
	if err != nil {
		err = fmt.Errorf("failed merging session cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("merged session cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"data":       merged,
	})
}

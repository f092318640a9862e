package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/cart/internal/catalog"
	inErrors "github.com/Alturino/cart/internal/errors"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/pkg/cart"
	"github.com/Alturino/cart/pkg/response"
)

// ValidateCheckout re-reads the catalog for every item to catch stock and
// activity drift since add time. Business-rule violations come back inside
// the structured result, never as an error; an error is returned only when
// validation itself could not be completed, and then the result still says
// invalid.
func (s *CartService) ValidateCheckout(
	c context.Context,
	id Identity,
) (response.CheckoutValidation, error) {
	c, span := otel.Tracer.Start(c, "CartService ValidateCheckout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService ValidateCheckout").
		Str(log.KEY_CART_ID, id.Key()).
		Logger()

	invalid := response.CheckoutValidation{
		IsValid:  false,
		Errors:   []response.ValidationIssue{},
		Warnings: []response.ValidationIssue{},
	}

	if !id.Authenticated {
		err := fmt.Errorf(
			"failed validating checkout with error=%w",
			inErrors.ErrAuthenticationRequired,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return invalid, err
	}

	logger = logger.With().Str(log.KEY_PROCESS, "loading cart").Logger()
	logger.Info().Msg("loading cart")
	loaded, err := s.accounts.Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf(
			"failed loading cart with error=%w",
			errors.Join(inErrors.ErrValidationFailed, err),
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return invalid, err
	}
	logger.Info().Msg("loaded cart")

	result := response.CheckoutValidation{
		Errors:   []response.ValidationIssue{},
		Warnings: []response.ValidationIssue{},
	}

	if len(loaded.Items) == 0 {
		result.Errors = append(result.Errors, response.ValidationIssue{
			Code:    response.IssueCartEmpty,
			Message: "cart is empty",
		})
		logger.Info().Msg("cart is empty, checkout is invalid")
		return result, nil
	}

	logger = logger.With().Str(log.KEY_PROCESS, "revalidating items").Logger()
	for _, item := range loaded.Items {
		logger.Info().Msgf("revalidating cartItemId=%s", item.ID.String())
		issueErrs, issueWarns, err := s.validateItem(c, item)
		if err != nil {
			err = fmt.Errorf(
				"failed revalidating cartItemId=%s with error=%w",
				item.ID.String(),
				errors.Join(inErrors.ErrValidationFailed, err),
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return invalid, err
		}
		result.Errors = append(result.Errors, issueErrs...)
		result.Warnings = append(result.Warnings, issueWarns...)
	}

	result.IsValid = len(result.Errors) == 0
	logger.Info().
		Bool("isValid", result.IsValid).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("revalidated items")

	return result, nil
}

func (s *CartService) validateItem(
	c context.Context,
	item cart.LineItem,
) (issueErrs, issueWarns []response.ValidationIssue, err error) {
	product, err := s.catalog.FindProductById(c, item.ProductID)
	if errors.Is(err, inErrors.ErrProductNotFound) {
		return []response.ValidationIssue{{
			ItemId:    item.ID,
			ProductId: item.ProductID,
			Code:      response.IssueProductNotFound,
			Message:   fmt.Sprintf("product %s is no longer available", item.ProductName),
		}}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !product.Active {
		return []response.ValidationIssue{{
			ItemId:    item.ID,
			ProductId: item.ProductID,
			Code:      response.IssueProductInactive,
			Message:   fmt.Sprintf("product %s has been deactivated", item.ProductName),
		}}, nil, nil
	}

	stock := product.Stock
	if item.VariantID != nil {
		var variant catalog.Variant
		variant, err = s.catalog.FindVariantById(c, item.ProductID, *item.VariantID)
		if errors.Is(err, inErrors.ErrVariantNotFound) {
			return []response.ValidationIssue{{
				ItemId:    item.ID,
				ProductId: item.ProductID,
				Code:      response.IssueProductNotFound,
				Message:   fmt.Sprintf("variant of product %s is no longer available", item.ProductName),
			}}, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		if !variant.Active {
			return []response.ValidationIssue{{
				ItemId:    item.ID,
				ProductId: item.ProductID,
				Code:      response.IssueVariantInactive,
				Message:   fmt.Sprintf("variant of product %s has been deactivated", item.ProductName),
			}}, nil, nil
		}
		stock = variant.Stock
	}

	if stock <= 0 {
		return []response.ValidationIssue{{
			ItemId:         item.ID,
			ProductId:      item.ProductID,
			Code:           response.IssueOutOfStock,
			Message:        fmt.Sprintf("product %s is out of stock", item.ProductName),
			AvailableStock: 0,
		}}, nil, nil
	}
	if stock < item.Quantity {
		return nil, []response.ValidationIssue{{
			ItemId:         item.ID,
			ProductId:      item.ProductID,
			Code:           response.IssuePartialStock,
			Message:        fmt.Sprintf("only %d of product %s left in stock", stock, item.ProductName),
			AvailableStock: stock,
		}}, nil
	}
	return nil, nil, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/cart/internal/errors"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/pkg/cart"
)

// MergeSessionIntoAccount folds the anonymous session cart into the
// authenticated account cart and deletes the session entry. The account
// store persists the merged item set in a single transaction, so a caller
// never observes a half-merged cart; the session entry is deleted only after
// that transaction commits, which makes re-running an interrupted merge safe.
func (s *CartService) MergeSessionIntoAccount(
	c context.Context,
	sessionToken string,
	id Identity,
) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService MergeSessionIntoAccount")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "CartService MergeSessionIntoAccount").
		Str(log.KEY_SESSION_ID, sessionToken).
		Logger()

	if !id.Authenticated {
		err := fmt.Errorf(
			"failed merging session cart with error=%w",
			inErrors.ErrAuthenticationRequired,
		)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger = logger.With().Str(log.KEY_ACCOUNT_ID, id.Key()).Logger()

	unlock := s.locks.LockBoth(sessionToken, id.Key())
	defer unlock()

	logger = logger.With().Str(log.KEY_PROCESS, "loading session cart").Logger()
	logger.Info().Msg("loading session cart")
	source, err := s.sessions.Load(c, sessionToken)
	if err != nil {
		err = fmt.Errorf("failed loading session cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msgf("loaded session cart with %d items", len(source.Items))

	logger = logger.With().Str(log.KEY_PROCESS, "loading account cart").Logger()
	logger.Info().Msg("loading account cart")
	target, err := s.accounts.Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed loading account cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msgf("loaded account cart with %d items", len(target.Items))

	if len(source.Items) > 0 {
		now := time.Now()
		merged := mergeItems(target.Items, source.Items, s.limits.MaxQuantityPerItem, now)
		if len(merged) > int(s.limits.MaxItems) {
			err = fmt.Errorf(
				"failed merging %d items into cart with error=%w",
				len(merged),
				inErrors.ErrCartLimitExceeded,
			)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		target = target.WithItems(merged, s.pricing, now)

		logger = logger.With().Str(log.KEY_PROCESS, "saving account cart").Logger()
		logger.Info().Msg("saving account cart")
		err = s.accounts.Save(c, target)
		if err != nil {
			err = fmt.Errorf("failed saving account cart with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return cart.Cart{}, err
		}
		logger.Info().Msg("saved account cart")
	}

	// Removed outright, not cleared to empty. Only after the account write
	// succeeded, so a failed merge leaves the session cart intact.
	logger = logger.With().Str(log.KEY_PROCESS, "deleting session cart").Logger()
	logger.Info().Msg("deleting session cart")
	err = s.sessions.Delete(c, sessionToken)
	if err != nil {
		err = fmt.Errorf("failed deleting session cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("deleted session cart")

	logger = logger.With().Str(log.KEY_PROCESS, "reloading account cart").Logger()
	logger.Info().Msg("reloading account cart")
	reloaded, err := s.accounts.Load(c, id.Key())
	if err != nil {
		err = fmt.Errorf("failed reloading account cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("reloaded account cart")

	return reloaded, nil
}

// mergeItems reconciles the source items into the target item list. A source
// item matching a target configuration adds its quantity to the target item,
// capped at maxQuantity, and the target's unit price stays authoritative. The
// rest are appended with fresh item ids.
func mergeItems(
	target, source []cart.LineItem,
	maxQuantity int32,
	now time.Time,
) []cart.LineItem {
	merged := make([]cart.LineItem, len(target))
	copy(merged, target)

	for _, item := range source {
		idx := cart.FindMatch(merged, item)
		if idx >= 0 {
			existing := merged[idx]
			quantity := existing.Quantity + item.Quantity
			if quantity > maxQuantity {
				quantity = maxQuantity
			}
			merged[idx] = existing.WithQuantity(quantity, now)
			continue
		}
		appended := item
		appended.ID = uuid.New()
		appended.UpdatedAt = now
		merged = append(merged, appended)
	}
	return merged
}

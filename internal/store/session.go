package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/cart/internal/constants"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
	"github.com/Alturino/cart/pkg/cart"
)

// SessionStore backs anonymous carts with redis. Every save re-applies the
// TTL, so a session cart expires that long after its last mutation.
type SessionStore struct {
	cache   *redis.Client
	pricing cart.Pricing
	ttl     time.Duration
}

func NewSessionStore(cache *redis.Client, pricing cart.Pricing, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, pricing: pricing, ttl: ttl}
}

func (s *SessionStore) Load(c context.Context, identifier string) (cart.Cart, error) {
	c, span := otel.Tracer.Start(c, "SessionStore Load")
	defer span.End()

	cacheKey := fmt.Sprintf(constants.KEY_CACHE_CARTS, identifier)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "SessionStore Load").
		Str(log.KEY_CACHE_KEY, cacheKey).
		Logger()

	jsonCache, err := s.cache.Get(c, cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		logger.Info().Msg("cart not in cache, initializing empty cart")
		return cart.New(identifier, s.pricing), nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart in cache with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}

	loaded := cart.Cart{}
	err = json.Unmarshal([]byte(jsonCache), &loaded)
	if err != nil {
		err = fmt.Errorf("failed unmarshaling cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return cart.Cart{}, err
	}
	logger.Info().Msg("found cart in cache")

	return loaded, nil
}

func (s *SessionStore) Save(c context.Context, snapshot cart.Cart) error {
	c, span := otel.Tracer.Start(c, "SessionStore Save")
	defer span.End()

	cacheKey := fmt.Sprintf(constants.KEY_CACHE_CARTS, snapshot.ID)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "SessionStore Save").
		Str(log.KEY_CACHE_KEY, cacheKey).
		Logger()

	marshaled, err := json.Marshal(snapshot)
	if err != nil {
		err = fmt.Errorf("failed marshaling cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	err = s.cache.Set(c, cacheKey, marshaled, s.ttl).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting cart to cache with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("inserted cart to cache")

	return nil
}

func (s *SessionStore) Delete(c context.Context, identifier string) error {
	c, span := otel.Tracer.Start(c, "SessionStore Delete")
	defer span.End()

	cacheKey := fmt.Sprintf(constants.KEY_CACHE_CARTS, identifier)

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "SessionStore Delete").
		Str(log.KEY_CACHE_KEY, cacheKey).
		Logger()

	err := s.cache.Del(c, cacheKey).Err()
	if err != nil {
		err = fmt.Errorf("failed deleting cart from cache with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart from cache")

	return nil
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/cart/internal/errors"
	inHttp "github.com/Alturino/cart/internal/http"
	"github.com/Alturino/cart/internal/log"
	"github.com/Alturino/cart/internal/otel"
)

// HttpClient talks to the product service over HTTP. It satisfies Client.
type HttpClient struct {
	baseUrl string
}

func NewHttpClient(baseUrl string) HttpClient {
	return HttpClient{baseUrl: baseUrl}
}

func (h HttpClient) FindProductById(
	c context.Context,
	productID uuid.UUID,
) (Product, error) {
	c, span := otel.Tracer.Start(c, "HttpClient FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "HttpClient FindProductById").
		Str(log.KEY_PRODUCT_ID, productID.String()).
		Logger()

	product := Product{}
	url := fmt.Sprintf("%s/products/%s", h.baseUrl, productID.String())
	err := h.getJson(c, url, &product)
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", productID.String(), err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Product{}, err
	}
	logger.Info().Msgf("found productId=%s", productID.String())

	return product, nil
}

func (h HttpClient) FindVariantById(
	c context.Context,
	productID, variantID uuid.UUID,
) (Variant, error) {
	c, span := otel.Tracer.Start(c, "HttpClient FindVariantById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KEY_TAG, "HttpClient FindVariantById").
		Str(log.KEY_PRODUCT_ID, productID.String()).
		Str(log.KEY_VARIANT_ID, variantID.String()).
		Logger()

	variant := Variant{}
	url := fmt.Sprintf(
		"%s/products/%s/variants/%s",
		h.baseUrl,
		productID.String(),
		variantID.String(),
	)
	err := h.getJson(c, url, &variant)
	if err != nil {
		err = fmt.Errorf("failed finding variantId=%s with error=%w", variantID.String(), err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Variant{}, err
	}
	logger.Info().Msgf("found variantId=%s", variantID.String())

	return variant, nil
}

func (h HttpClient) getJson(c context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(c, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed creating request with error=%w", err)
	}
	req.Header.Add(inHttp.KEY_HEADER_REQUEST_ID, log.RequestIDFromContext(c))

	resp, err := otelhttp.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed sending request with error=%w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if _, ok := out.(*Variant); ok {
			return errors.ErrVariantNotFound
		}
		return errors.ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned status code=%d", resp.StatusCode)
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed decoding response body with error=%w", err)
	}
	return nil
}

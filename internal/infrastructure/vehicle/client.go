package vehicle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/resilience"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
)

var tracer = otel.Tracer("github.com/oem-ev-warranty/parts-service/internal/infrastructure/vehicle")

// ClientConfig configures the vehicle service client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   *resilience.RetryConfig
}

// StatusError is a non-2xx answer from the vehicle service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vehicle service returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) serverSide() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type compatibilityResponse struct {
	VehicleModelID  string `json:"vehicleModelId"`
	TypeComponentID string `json:"typeComponentId"`
	Compatible      bool   `json:"compatible"`
}

// Client asks the vehicle service whether a component type fits a model.
// Server errors are retried with backoff and trip the circuit breaker; a 404
// means the pair is unknown and therefore not compatible.
type Client struct {
	http    *resty.Client
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  *logging.Logger
}

// NewClient creates a vehicle service client
func NewClient(config ClientConfig, m *metrics.Metrics, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	cbConfig := resilience.DefaultCircuitBreakerConfig("vehicle-service")
	cbConfig.IsSuccessful = func(err error) bool {
		var statusErr *StatusError
		return err == nil || (errors.As(err, &statusErr) && !statusErr.serverSide())
	}
	cbConfig.OnStateChange = func(name string, state int) {
		m.SetCircuitBreakerState(name, state)
		if state == 2 {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	retry := config.Retry
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.RetryableErrors == nil {
		retry.RetryableErrors = isRetryable
	}

	return &Client{
		http:    httpClient,
		breaker: resilience.NewCircuitBreaker(cbConfig, logger.Logger),
		retry:   retry,
		logger:  logger.WithComponent("vehicle-client"),
	}
}

func isRetryable(err error) bool {
	if resilience.IsUnavailable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.serverSide()
	}
	return true
}

// IsCompatible implements application.CompatibilityChecker
func (c *Client) IsCompatible(ctx context.Context, vehicleModelID, typeComponentID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "vehicle.IsCompatible",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("vehicle.model_id", vehicleModelID),
			attribute.String("component.type_id", typeComponentID),
		),
	)

	compatible, err := resilience.RetryWithResult(ctx, c.retry, func() (bool, error) {
		var result bool
		err := c.breaker.Execute(ctx, func() error {
			var callErr error
			result, callErr = c.fetch(ctx, vehicleModelID, typeComponentID)
			return callErr
		})
		return result, err
	})
	tracing.EndSpan(span, err)

	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Compatibility lookup failed",
			"vehicleModelId", vehicleModelID,
			"typeComponentId", typeComponentID,
		)
		return false, err
	}
	return compatible, nil
}

func (c *Client) fetch(ctx context.Context, vehicleModelID, typeComponentID string) (bool, error) {
	result := new(compatibilityResponse)
	req := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"modelId": vehicleModelID,
			"typeId":  typeComponentID,
		}).
		SetResult(result)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := req.Get("/api/v1/vehicle-models/{modelId}/compatible-components/{typeId}")
	if err != nil {
		return false, fmt.Errorf("vehicle service request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	case resp.IsError():
		return false, &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return result.Compatible, nil
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// retryableStatuses are upstream statuses worth retrying: rate limiting
// and transient server failures.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryableStatus reports whether an upstream status is retryable.
func IsRetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// IsRetryableError reports whether a transport error is retryable:
// connection failures and timeouts are, everything else is not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// RetryOptions tunes Do.
type RetryOptions struct {
	// InitialInterval is the first backoff delay (default 500ms).
	InitialInterval time.Duration
	// MaxElapsedTime bounds the total retry window (default 30s).
	MaxElapsedTime time.Duration
}

// Do executes the request with exponential backoff, retrying transport
// errors and retryable upstream statuses. Responses passed through from
// the upstream with non-retryable statuses are returned as-is; only
// upstream-attributed statuses are retried, so gateway rejections
// (validation, auth, disabled upstreams) fail fast — except gateway rate
// limiting, which is retryable by nature.
func Do(ctx context.Context, c Client, alias string, tenantID uuid.UUID, req *Request, opts RetryOptions) (*Response, error) {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxElapsedTime <= 0 {
		opts.MaxElapsedTime = 30 * time.Second
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.InitialInterval
	policy.MaxElapsedTime = opts.MaxElapsedTime

	var resp *Response
	operation := func() error {
		var err error
		resp, err = c.Execute(ctx, alias, tenantID, req)
		if err != nil {
			if IsRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if shouldRetryResponse(resp) {
			// Drain so the connection can be reused, then retry.
			resp.Close()
			return fmt.Errorf("retryable status %d", resp.StatusCode)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func shouldRetryResponse(resp *Response) bool {
	if !IsRetryableStatus(resp.StatusCode) {
		return false
	}
	// Gateway-attributed errors are configuration faults, not transients,
	// except rate limiting.
	if resp.ErrorSource == SourceGateway {
		return resp.StatusCode == 429
	}
	return true
}

package thermostat

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	sessionRetries = 3
	sessionBackoff = 500 * time.Millisecond
	sessionMaxWait = 8 * time.Second
	defaultTimeout = 15 * time.Second
	nethomeTimeout = 20 * time.Second
)

// retryStatuses is the set of transient upstream statuses worth retrying.
var retryStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// NewSession builds the shared resilient HTTP client: three retries with
// exponential backoff on connection errors and the transient status set,
// regardless of method. Terminal non-2xx responses do not error here;
// callers inspect the response and translate to VendorError themselves.
func NewSession(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(sessionRetries).
		SetRetryWaitTime(sessionBackoff).
		SetRetryMaxWaitTime(sessionMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return retryStatuses[r.StatusCode()]
		})
}

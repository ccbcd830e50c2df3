// Package thermostat implements the vendor-agnostic thermostat control layer:
// a uniform adapter capability set backed by per-vendor cloud clients.
package thermostat

import (
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// VendorError is the structured error envelope shared by all vendor clients.
// Status carries an HTTP-mappable code: 502 for upstream failures, 401 for
// auth failures.
type VendorError struct {
	Vendor  string
	Message string
	Code    string
	Status  int
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

// ErrorBody is the client-facing representation of a vendor failure.
type ErrorBody struct {
	Vendor  string `json:"vendor"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Response maps the error to a client-facing (body, status) pair.
func (e *VendorError) Response() (ErrorBody, int) {
	code := e.Code
	if code == "" {
		code = "vendor_error"
	}
	status := e.Status
	if status == 0 {
		status = 502
	}
	return ErrorBody{Vendor: e.Vendor, Error: code, Message: e.Message}, status
}

// newVendorError builds an upstream failure with the default 502 status.
func newVendorError(vendor, format string, args ...any) *VendorError {
	return &VendorError{Vendor: vendor, Message: fmt.Sprintf(format, args...), Status: 502}
}

// newAuthError builds an authentication failure (status 401). A failed token
// refresh is fatal for the operation, not transient.
func newAuthError(vendor, format string, args ...any) *VendorError {
	return &VendorError{Vendor: vendor, Message: fmt.Sprintf(format, args...), Status: 401}
}

// ConfigurationError reports a missing or unreadable vendor account. It is
// fatal for the affected thermostat and never retried.
type ConfigurationError struct {
	Vendor  string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

// Response maps the error to a client-facing (body, status) pair. The status
// is always 400: operator configuration must change before a retry can help.
func (e *ConfigurationError) Response() (ErrorBody, int) {
	return ErrorBody{Vendor: e.Vendor, Error: "configuration_error", Message: e.Message}, 400
}

// upstreamError translates a terminal non-2xx vendor response into a
// VendorError, preferring the vendor's own message field when the body is
// JSON.
func upstreamError(vendor string, resp *resty.Response) *VendorError {
	msg := string(resp.Body())

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err == nil && parsed.Message != "" {
		msg = parsed.Message
	}

	return newVendorError(vendor, "HTTP %d: %s", resp.StatusCode(), msg)
}

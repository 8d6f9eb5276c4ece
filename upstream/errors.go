// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package upstream

import "fmt"

// HTTPError is a non-success status from the workbench server. Callers
// use errors.As to extract the structured information:
//
//	var httpErr *upstream.HTTPError
//	if errors.As(err, &httpErr) {
//	    if httpErr.StatusCode == http.StatusNotFound { ... }
//	}
type HTTPError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Method and Path identify the failed request.
	Method string
	Path   string
	// Body is an excerpt of the response body, for diagnostics.
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("workbench: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// DecodeError is a normalization or typed-decode failure on a 2xx
// upstream response. It signals schema drift between the workbench API
// and the bridge's typed model and is logged loudly by the handlers.
type DecodeError struct {
	// Path identifies the request whose response failed to decode.
	Path string
	// Err is the underlying normalization or JSON error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("workbench: decoding %s response: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

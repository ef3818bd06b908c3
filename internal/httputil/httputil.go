// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package httputil provides the shared HTTP client used by every
// network-bound credential provider.
package httputil

import "net/http"

var transport = http.DefaultTransport

// DefaultHTTPClient is the shared client handed to providers that are not
// given one explicitly.
var DefaultHTTPClient = &http.Client{}

// NewHTTPClient returns the shared HTTP client. A replaced global default
// transport is picked up so proxy-injecting test harnesses keep working.
func NewHTTPClient() *http.Client {
	if http.DefaultTransport != transport {
		DefaultHTTPClient.Transport = http.DefaultTransport
	}
	return DefaultHTTPClient
}

// CloseIdleHTTPConnections closes any idle connections held by the client.
func CloseIdleHTTPConnections(client *http.Client) {
	client.CloseIdleConnections()
}

// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package credproviders implements the individual credential providers that
// make up the default resolution chain: static values, process environment,
// shared profile files, container endpoints, instance metadata, external
// processes, SSO token caches, and STS role assumption.
//
// Every provider performs at most one logical resolution per Retrieve call
// and reports failure instead of falling back; ordering and fallback are the
// chain's job, caching is the credentials.Credentials cache's job.
package credproviders

import (
	"errors"
	"os"
	"time"

	"github.com/hill-labs/awsauth/credentials"
)

// defaultHTTPTimeout bounds every metadata and container endpoint call.
const defaultHTTPTimeout = 10 * time.Second

// EnvVar is an environment variable
type EnvVar string

// Get retrieves the environment variable
func (ev EnvVar) Get() string {
	return os.Getenv(string(ev))
}

// verify rejects credential values missing either key. Providers return what
// they resolved alongside the error so callers can log the partial value's
// source.
func verify(v credentials.Value) error {
	if !v.HasKeys() {
		return errors.New("failed to retrieve " + v.Source + " keys")
	}
	return nil
}

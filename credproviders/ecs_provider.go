// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"errors"
	"net/http"

	"github.com/hill-labs/awsauth/credentials"
)

// EcsProviderName provides a name of ECS provider
const EcsProviderName = "EcsProvider"

// awsRelativeURI is the fixed host every relative container credential URI is
// resolved against.
const awsRelativeURI = "http://169.254.170.2/"

// An EcsProvider retrieves credentials from the ECS container credential
// endpoint named by AWS_CONTAINER_CREDENTIALS_RELATIVE_URI.
type EcsProvider struct {
	awsContainerCredentialsRelativeURIEnv EnvVar

	httpClient *http.Client

	// Endpoint overrides the base URI the relative URI is resolved against.
	// Empty means the standard link-local address.
	Endpoint string
}

// NewEcsProvider returns a pointer to an ECS credential provider.
func NewEcsProvider(httpClient *http.Client) *EcsProvider {
	return &EcsProvider{
		// awsContainerCredentialsRelativeURIEnv is the environment variable for AWS_CONTAINER_CREDENTIALS_RELATIVE_URI
		awsContainerCredentialsRelativeURIEnv: EnvVar("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI"),
		httpClient:                            httpClient,
	}
}

// Retrieve retrieves the keys from the ECS container endpoint.
func (e *EcsProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: EcsProviderName}

	relativeEcsURI := e.awsContainerCredentialsRelativeURIEnv.Get()
	if len(relativeEcsURI) == 0 {
		return v, errors.New("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI is missing")
	}

	base := e.Endpoint
	if base == "" {
		base = awsRelativeURI
	}

	req, err := http.NewRequest(http.MethodGet, base+relativeEcsURI, nil)
	if err != nil {
		return v, err
	}

	doc, err := fetchContainerCredentials(ctx, e.httpClient, req)
	if err != nil {
		return v, err
	}
	return doc.value(EcsProviderName)
}

// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package awsauth resolves AWS credentials through the standard provider
// chain and signs requests with Signature Version 4.
//
// Most callers need only the default chain:
//
//	creds := awsauth.NewDefaultChain(awsauth.Options{})
//	signer := sigv4.NewSigner(creds)
//
// The chain tries, in order: environment variables, the shared credentials
// file, web identity token exchange, the ECS and EKS container endpoints, and
// EC2 instance metadata. The first provider that yields complete credentials
// wins, and the result is cached until shortly before it expires.
package awsauth

import (
	"net/http"

	"github.com/hill-labs/awsauth/credentials"
	"github.com/hill-labs/awsauth/credproviders"
	"github.com/hill-labs/awsauth/internal/httputil"
	"github.com/hill-labs/awsauth/sts"
)

// awsRegionEnv is the environment variable for AWS_REGION
const awsRegionEnv = "AWS_REGION"

// Options configures the default chain.
type Options struct {
	// HTTPClient issues metadata, container, and STS requests. Nil means the
	// package's shared client.
	HTTPClient *http.Client

	// Profile selects the shared credentials file profile. Empty means
	// AWS_PROFILE, then "default".
	Profile string

	// Region is the STS signing region for role assumption. Empty means
	// AWS_REGION, then the global endpoint's region.
	Region string
}

// NewDefaultChain returns cached credentials backed by the default provider
// chain.
func NewDefaultChain(opts Options) *credentials.Credentials {
	return credentials.NewChainCredentials(DefaultProviders(opts))
}

// DefaultProviders returns the providers of the default chain in resolution
// order. Callers composing their own chain can reorder or extend the slice.
func DefaultProviders(opts Options) []credentials.Provider {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httputil.DefaultHTTPClient
	}

	region := opts.Region
	if region == "" {
		region = credproviders.EnvVar(awsRegionEnv).Get()
	}
	stsClient := &sts.Client{
		HTTPClient: httpClient,
		Region:     region,
	}

	return []credentials.Provider{
		credproviders.NewEnvProvider(),
		credproviders.NewProfileProvider(httpClient, stsClient, opts.Profile),
		credproviders.NewWebIdentityProvider(httpClient),
		credproviders.NewEcsProvider(httpClient),
		credproviders.NewEKSProvider(httpClient),
		credproviders.NewEc2Provider(httpClient),
	}
}

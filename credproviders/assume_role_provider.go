// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hill-labs/awsauth/credentials"
)

// AssumeRoleProviderName provides a name of assume role provider
const AssumeRoleProviderName = "AssumeRoleProvider"

// AssumeRoleParams carries one AssumeRole call's inputs.
type AssumeRoleParams struct {
	RoleARN     string
	SessionName string
	ExternalID  string
	Duration    time.Duration
}

// AssumeRoleAPI exchanges source credentials for role credentials. The STS
// client implements it; tests substitute fakes.
type AssumeRoleAPI interface {
	AssumeRole(ctx context.Context, source credentials.Value, params AssumeRoleParams) (credentials.Value, error)
}

// An AssumeRoleProvider resolves source credentials and exchanges them for
// the configured role's credentials.
type AssumeRoleProvider struct {
	API    AssumeRoleAPI
	Source credentials.Provider
	Params AssumeRoleParams
}

// NewAssumeRoleProvider returns a pointer to an assume role provider.
func NewAssumeRoleProvider(api AssumeRoleAPI, source credentials.Provider, params AssumeRoleParams) *AssumeRoleProvider {
	return &AssumeRoleProvider{
		API:    api,
		Source: source,
		Params: params,
	}
}

// Retrieve resolves the source credentials and performs the exchange.
func (a *AssumeRoleProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: AssumeRoleProviderName}

	if a.Params.RoleARN == "" {
		return v, errors.New("assume role requires a role ARN")
	}

	source, err := a.Source.Retrieve(ctx)
	if err != nil {
		return v, errors.Wrap(err, "resolving assume role source credentials")
	}

	params := a.Params
	if params.SessionName == "" {
		// Use a UUID if the RoleSessionName is not given.
		params.SessionName = uuid.NewString()
	}

	v, err = a.API.AssumeRole(ctx, source, params)
	if err != nil {
		return v, err
	}
	v.Source = AssumeRoleProviderName
	if err := verify(v); err != nil {
		return v, err
	}
	return v, nil
}

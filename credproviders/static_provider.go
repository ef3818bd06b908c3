// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"

	"github.com/hill-labs/awsauth/credentials"
)

// StaticProviderName provides a name of static provider
const StaticProviderName = "StaticProvider"

// A StaticProvider is a set of credentials which are set programmatically.
type StaticProvider struct {
	credentials.Value
}

// NewStaticProvider returns a provider that always yields the given keys.
func NewStaticProvider(accessKeyID, secretAccessKey, sessionToken string) *StaticProvider {
	return &StaticProvider{credentials.Value{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
	}}
}

// Retrieve returns the credentials or error if the credentials are invalid.
func (s *StaticProvider) Retrieve(context.Context) (credentials.Value, error) {
	v := s.Value
	v.Source = StaticProviderName
	if err := verify(v); err != nil {
		return v, err
	}
	return v, nil
}

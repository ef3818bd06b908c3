// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credentials

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/hill-labs/awsauth/awserr"
)

// ErrCodeNoCredentialProviders is the code of the aggregate error returned
// when every provider in a chain has been exhausted. The batched error
// carries the individual failure of each attempted provider.
const ErrCodeNoCredentialProviders = "NoCredentialProviders"

// The ChainProvider provides a way of chaining multiple providers together
// which will pick the first available using priority order of the Providers
// in the list.
//
// A provider that is not configured for the current environment and a
// provider that is configured but failed are treated the same way: the chain
// moves on to the next provider and retains the error for the aggregate
// failure report. Partial results from two providers are never combined into
// one Value.
//
// If none of the Providers retrieve valid credentials Value, ChainProvider's
// Retrieve() will return a batched ErrCodeNoCredentialProviders error.
type ChainProvider struct {
	Providers []Provider

	// Logger, when set, receives a debug line for every provider attempt.
	Logger *logrus.Logger
}

// NewChainCredentials returns a pointer to a new Credentials object
// wrapping a chain of providers.
func NewChainCredentials(providers []Provider) *Credentials {
	return NewCredentials(&ChainProvider{
		Providers: append([]Provider{}, providers...),
	})
}

// Retrieve returns the credentials value or error if no provider returned
// without error.
func (c *ChainProvider) Retrieve(ctx context.Context) (Value, error) {
	errs := make([]error, 0, len(c.Providers))
	for _, p := range c.Providers {
		creds, err := p.Retrieve(ctx)
		if err == nil {
			if !creds.Expired() && creds.HasKeys() {
				c.debugf(creds, "credentials resolved")
				return creds, nil
			}
			err = errors.New("credentials are invalid")
		}
		if c.Logger != nil {
			c.Logger.WithField("source", creds.Source).WithError(err).
				Debug("credential provider skipped")
		}
		errs = append(errs, err)
	}

	err := awserr.NewBatchError(ErrCodeNoCredentialProviders, "no valid providers in chain", errs)
	return Value{}, err
}

func (c *ChainProvider) debugf(v Value, msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.WithField("source", v.Source).Debug(msg)
}

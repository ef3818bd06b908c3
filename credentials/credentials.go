// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package credentials provides the credential Value type, the Provider
// contract implemented by every credential source, and a concurrency safe
// cache that refreshes expiring credentials through a single in-flight
// provider call.
package credentials

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hill-labs/awsauth/awserr"
)

// ErrCodeRequestCanceled is returned by Credentials.Get when the waiting
// caller's context is canceled before the shared retrieve completes.
const ErrCodeRequestCanceled = "RequestCanceled"

// ErrCodeExpiredOrRejectedCredentials classifies a downstream signature
// rejection. The transport layer maps a rejection response to this code,
// calls Credentials.Invalidate, and retries the original call exactly once.
const ErrCodeExpiredOrRejectedCredentials = "ExpiredOrRejectedCredentials"

// DefaultExpiryWindow is subtracted from a credential expiration when the
// cache decides whether a refresh is due, so callers never hold credentials
// right at the edge of their validity.
const DefaultExpiryWindow = 5 * time.Minute

// A Value is the credential material for individual credential fields.
type Value struct {
	// Access key ID
	AccessKeyID string

	// Secret Access Key
	SecretAccessKey string

	// Session Token
	SessionToken string

	// Source of the credentials
	Source string

	// States if the credentials can expire or not.
	CanExpire bool

	// The time the credentials will expire at. Should be ignored if CanExpire
	// is false.
	Expires time.Time
}

// Expired returns if the credentials have expired.
func (v Value) Expired() bool {
	return v.expiredWithin(0)
}

// expiredWithin reports whether the credentials expire within the window.
func (v Value) expiredWithin(window time.Duration) bool {
	if v.CanExpire {
		// Calling Round(0) on the current time will truncate the monotonic
		// reading only. Ensures credential expiry time is always based on
		// reported wall-clock time.
		return !v.Expires.After(time.Now().Round(0).Add(window))
	}

	return false
}

// HasKeys returns if the credentials Value has both AccessKeyID and
// SecretAccessKey value set.
func (v Value) HasKeys() bool {
	return len(v.AccessKeyID) != 0 && len(v.SecretAccessKey) != 0
}

// A Provider is the interface for any component which will provide credentials
// Value.
//
// The Provider should not need to implement its own mutexes, because
// that will be managed by Credentials.
type Provider interface {
	// Retrieve returns nil if it successfully retrieved the value.
	// Error is returned if the value were not obtainable, or empty.
	Retrieve(context.Context) (Value, error)
}

// A Credentials provides concurrency safe retrieval of credentials Value.
//
// Credentials will cache the credentials value until they come within
// ExpiryWindow of expiring. Once the value expires the next Get will attempt
// to retrieve valid credentials.
//
// Credentials is safe to use across multiple goroutines and will manage the
// synchronous state so the Providers do not need to implement their own
// synchronization.
//
// The first Credentials.Get() will always call Provider.Retrieve() to get the
// first instance of the credentials Value. All calls to Get() after that
// will return the cached credentials Value until they near expiry.
type Credentials struct {
	provider Provider

	// ExpiryWindow is how long before the actual expiration a cached value is
	// treated as stale. Defaults to DefaultExpiryWindow when left zero.
	ExpiryWindow time.Duration

	creds atomic.Value
	sf    singleflight.Group
}

// NewCredentials returns a pointer to a new Credentials with the provider set.
func NewCredentials(provider Provider) *Credentials {
	c := &Credentials{
		provider:     provider,
		ExpiryWindow: DefaultExpiryWindow,
	}
	return c
}

// Get returns the credentials value, or error if the credentials Value failed
// to be retrieved. Will return early if the passed in context is canceled.
//
// Will return the cached credentials Value if it has not expired. If the
// credentials Value has expired the Provider's Retrieve() will be called
// to refresh the credentials. Concurrent callers against an expired cache
// share one Retrieve; a caller whose context is canceled abandons only its
// own wait, not the shared in-flight refresh.
func (c *Credentials) Get(ctx context.Context) (Value, error) {
	// Cannot pass context down to the actual retrieve, because the first
	// context would cancel the whole group when there is not direct
	// association of items in the group.
	resCh := c.sf.DoChan("", func() (any, error) {
		return c.singleRetrieve(&suppressedContext{ctx})
	})
	select {
	case res := <-resCh:
		if res.Err != nil {
			return Value{}, res.Err
		}
		return res.Val.(Value), nil
	case <-ctx.Done():
		return Value{}, awserr.New(ErrCodeRequestCanceled,
			"request context canceled", ctx.Err())
	}
}

// Invalidate discards the cached value so the next Get refreshes through the
// provider. Used when a downstream call reports the credentials as rejected.
func (c *Credentials) Invalidate() {
	c.creds.Store((*Value)(nil))
}

func (c *Credentials) singleRetrieve(ctx context.Context) (any, error) {
	if currCreds, ok := c.getCreds(); ok && !currCreds.expiredWithin(c.window()) {
		return currCreds, nil
	}

	newCreds, err := c.provider.Retrieve(ctx)
	if err == nil {
		c.creds.Store(&newCreds)
	}

	return newCreds, err
}

// getCreds returns the currently stored credentials and true. Returning false
// if no credentials were stored.
func (c *Credentials) getCreds() (Value, bool) {
	v := c.creds.Load()
	if v == nil {
		return Value{}, false
	}

	val := v.(*Value)
	if val == nil || !val.HasKeys() {
		return Value{}, false
	}

	return *val, true
}

func (c *Credentials) window() time.Duration {
	if c.ExpiryWindow > 0 {
		return c.ExpiryWindow
	}
	return DefaultExpiryWindow
}

type suppressedContext struct {
	context.Context
}

func (s *suppressedContext) Deadline() (deadline time.Time, ok bool) {
	return time.Time{}, false
}

func (s *suppressedContext) Done() <-chan struct{} {
	return nil
}

func (s *suppressedContext) Err() error {
	return nil
}

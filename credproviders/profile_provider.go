// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hill-labs/awsauth/awserr"
	"github.com/hill-labs/awsauth/credentials"
	"github.com/hill-labs/awsauth/profile"
)

// ProfileProviderName provides a name of shared profile provider
const ProfileProviderName = "ProfileProvider"

// ErrCodeCircularProfileReference is returned when source_profile references
// form a cycle or exceed the resolution depth limit.
const ErrCodeCircularProfileReference = "CircularProfileReference"

// maxSourceProfileDepth bounds source_profile chains even when every link is
// distinct.
const maxSourceProfileDepth = 5

// awsProfileEnv is the environment variable for AWS_PROFILE
const awsProfileEnv = EnvVar("AWS_PROFILE")

// A ProfileProvider resolves a named profile from the shared credentials
// file, following source_profile links and dispatching each profile to the
// provider its classification names.
type ProfileProvider struct {
	// ProfileName is the profile to resolve. Empty means AWS_PROFILE, then
	// "default".
	ProfileName string

	// Path overrides the shared credentials file location.
	Path string

	// API performs AssumeRole exchanges for role profiles.
	API AssumeRoleAPI

	httpClient *http.Client

	loadOnce sync.Once
	store    *profile.Store
	loadErr  error
}

// NewProfileProvider returns a pointer to a shared profile provider.
func NewProfileProvider(httpClient *http.Client, api AssumeRoleAPI, profileName string) *ProfileProvider {
	return &ProfileProvider{
		ProfileName: profileName,
		API:         api,
		httpClient:  httpClient,
	}
}

// getStore loads the credentials file once; a missing file is an empty store
// and resolution fails on profile lookup instead.
func (p *ProfileProvider) getStore() (*profile.Store, error) {
	p.loadOnce.Do(func() {
		path := p.Path
		if path == "" {
			path = profile.DefaultPath()
		}
		p.store, p.loadErr = profile.NewStore(path)
	})
	return p.store, p.loadErr
}

func (p *ProfileProvider) profileName() string {
	if p.ProfileName != "" {
		return p.ProfileName
	}
	if name := awsProfileEnv.Get(); name != "" {
		return name
	}
	return "default"
}

// Retrieve resolves the configured profile.
func (p *ProfileProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: ProfileProviderName}

	store, err := p.getStore()
	if err != nil {
		return v, err
	}

	visited := map[string]struct{}{}
	return p.resolve(ctx, store, p.profileName(), visited)
}

func (p *ProfileProvider) resolve(ctx context.Context, store *profile.Store, name string, visited map[string]struct{}) (credentials.Value, error) {
	v := credentials.Value{Source: ProfileProviderName}

	if _, ok := visited[name]; ok {
		return v, awserr.New(ErrCodeCircularProfileReference,
			fmt.Sprintf("profile %q is part of a source_profile cycle", name), nil)
	}
	if len(visited) >= maxSourceProfileDepth {
		return v, awserr.New(ErrCodeCircularProfileReference,
			fmt.Sprintf("source_profile chain exceeds %d profiles at %q", maxSourceProfileDepth, name), nil)
	}
	visited[name] = struct{}{}

	prof, err := store.GetProfile(name)
	if err != nil {
		return v, err
	}
	kind, err := prof.Classify()
	if err != nil {
		return v, err
	}

	switch kind {
	case profile.TypeStatic:
		v.AccessKeyID = prof.Options.AccessKeyID
		v.SecretAccessKey = prof.Options.SecretAccessKey
		v.SessionToken = prof.Options.SessionToken
		return v, nil

	case profile.TypeAssumeRole:
		return p.assumeRole(ctx, store, prof, visited)

	case profile.TypeProcess:
		return NewProcessProvider(prof.Options.CredentialProcess).Retrieve(ctx)

	case profile.TypeSSO:
		o := prof.Options
		return NewSSOProvider(p.httpClient, o.SSOStartURL, o.SSORegion, o.SSOAccountID, o.SSORoleName).Retrieve(ctx)

	case profile.TypeContainer:
		return p.containerProvider().Retrieve(ctx)

	case profile.TypeInstanceMetadata:
		return NewEc2Provider(p.httpClient).Retrieve(ctx)
	}

	return v, awserr.New(profile.ErrCodeInvalidProfile,
		fmt.Sprintf("profile %q resolved to no provider", name), nil)
}

func (p *ProfileProvider) assumeRole(ctx context.Context, store *profile.Store, prof *profile.Profile, visited map[string]struct{}) (credentials.Value, error) {
	v := credentials.Value{Source: ProfileProviderName}

	if p.API == nil {
		return v, awserr.New(profile.ErrCodeInvalidProfile,
			fmt.Sprintf("profile %q requires role assumption but no STS API is configured", prof.Name), nil)
	}

	o := prof.Options

	var source credentials.Provider
	switch {
	case o.SourceProfile != "":
		source = providerFunc(func(ctx context.Context) (credentials.Value, error) {
			return p.resolve(ctx, store, o.SourceProfile, visited)
		})
	case o.CredentialSource == profile.CredentialSourceEnvironment:
		source = NewEnvProvider()
	case o.CredentialSource == profile.CredentialSourceContainer:
		source = p.containerProvider()
	case o.CredentialSource == profile.CredentialSourceInstance:
		source = NewEc2Provider(p.httpClient)
	default:
		return v, awserr.New(profile.ErrCodeInvalidProfile,
			fmt.Sprintf("profile %q: unsupported credential_source %q", prof.Name, o.CredentialSource), nil)
	}

	params := AssumeRoleParams{
		RoleARN:     o.RoleARN,
		SessionName: o.RoleSessionName,
		ExternalID:  o.ExternalID,
	}
	if o.DurationSeconds > 0 {
		params.Duration = time.Duration(o.DurationSeconds) * time.Second
	}

	return NewAssumeRoleProvider(p.API, source, params).Retrieve(ctx)
}

// containerProvider picks the container endpoint variant from the
// environment: the full URI endpoint wins when both are configured.
func (p *ProfileProvider) containerProvider() credentials.Provider {
	if EnvVar("AWS_CONTAINER_CREDENTIALS_FULL_URI").Get() != "" {
		return NewEKSProvider(p.httpClient)
	}
	return NewEcsProvider(p.httpClient)
}

// providerFunc adapts a closure to the credentials.Provider interface.
type providerFunc func(ctx context.Context) (credentials.Value, error)

func (f providerFunc) Retrieve(ctx context.Context) (credentials.Value, error) {
	return f(ctx)
}

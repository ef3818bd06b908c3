// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package profile models named sections of the shared credentials file and
// classifies each into exactly one credential-source variant.
package profile

import (
	"fmt"

	"github.com/hill-labs/awsauth/awserr"
)

const (
	// ErrCodeProfileNotFound is returned when a named profile does not exist
	// in the store.
	ErrCodeProfileNotFound = "ProfileNotFound"

	// ErrCodeAmbiguousProfile is returned when a profile carries more than
	// one mutually exclusive credential option combination. The profile is
	// surfaced as ambiguous, never silently classified.
	ErrCodeAmbiguousProfile = "AmbiguousProfile"

	// ErrCodeInvalidProfile is returned when a profile's recognized options
	// do not form any complete credential source.
	ErrCodeInvalidProfile = "InvalidProfile"
)

// Values accepted for the credential_source option.
const (
	CredentialSourceEnvironment = "Environment"
	CredentialSourceContainer   = "EcsContainer"
	CredentialSourceInstance    = "Ec2InstanceMetadata"
)

// Type identifies the credential-source variant a profile resolves through.
type Type int

const (
	// TypeUnknown is the zero value; classification never returns it without
	// an error.
	TypeUnknown Type = iota
	// TypeStatic profiles carry a literal key pair.
	TypeStatic
	// TypeAssumeRole profiles exchange a source profile's credentials for
	// temporary role credentials.
	TypeAssumeRole
	// TypeProcess profiles run an external command that emits credentials.
	TypeProcess
	// TypeSSO profiles fetch role credentials from the SSO portal.
	TypeSSO
	// TypeContainer profiles mark the container metadata endpoint.
	TypeContainer
	// TypeInstanceMetadata profiles mark the instance metadata endpoint.
	TypeInstanceMetadata
)

func (t Type) String() string {
	switch t {
	case TypeStatic:
		return "static"
	case TypeAssumeRole:
		return "assume-role"
	case TypeProcess:
		return "process"
	case TypeSSO:
		return "sso"
	case TypeContainer:
		return "container"
	case TypeInstanceMetadata:
		return "instance-metadata"
	default:
		return "unknown"
	}
}

// Options is the closed set of recognized profile option fields. Anything
// else found in a section lands in Profile.Properties.
type Options struct {
	AccessKeyID     string `ini:"aws_access_key_id"`
	SecretAccessKey string `ini:"aws_secret_access_key"`
	SessionToken    string `ini:"aws_session_token"`

	RoleARN          string `ini:"role_arn"`
	SourceProfile    string `ini:"source_profile"`
	CredentialSource string `ini:"credential_source"`
	ExternalID       string `ini:"external_id"`
	RoleSessionName  string `ini:"role_session_name"`
	DurationSeconds  int    `ini:"duration_seconds"`

	CredentialProcess string `ini:"credential_process"`

	SSOStartURL  string `ini:"sso_start_url"`
	SSORegion    string `ini:"sso_region"`
	SSOAccountID string `ini:"sso_account_id"`
	SSORoleName  string `ini:"sso_role_name"`
}

// A Profile is one named bag of recognized options plus free-form properties.
// It is mutable until registered with a Store, and may be re-registered under
// the same name to overwrite the persisted section.
type Profile struct {
	Name    string
	Options Options
	Region  string

	// Properties holds unrecognized or custom keys from the section.
	Properties map[string]string

	// UniqueKey is assigned by the store on registration.
	UniqueKey string
}

// Classify determines which credential-source variant the profile's non-empty
// options describe. Exactly one variant must match; a profile matching more
// than one mutually exclusive combination fails with ErrCodeAmbiguousProfile.
func (p *Profile) Classify() (Type, error) {
	o := p.Options

	hasStatic := o.AccessKeyID != "" || o.SecretAccessKey != ""
	hasRole := o.RoleARN != ""
	hasProcess := o.CredentialProcess != ""
	hasSSO := o.SSOStartURL != "" || o.SSORegion != "" || o.SSOAccountID != "" || o.SSORoleName != ""
	// credential_source only marks a standalone metadata profile when no
	// role_arn consumes it as the role's source.
	hasSource := o.CredentialSource != "" && !hasRole

	var matches []Type
	if hasStatic {
		matches = append(matches, TypeStatic)
	}
	if hasRole {
		matches = append(matches, TypeAssumeRole)
	}
	if hasProcess {
		matches = append(matches, TypeProcess)
	}
	if hasSSO {
		matches = append(matches, TypeSSO)
	}
	if hasSource {
		switch o.CredentialSource {
		case CredentialSourceContainer:
			matches = append(matches, TypeContainer)
		case CredentialSourceInstance:
			matches = append(matches, TypeInstanceMetadata)
		default:
			return TypeUnknown, awserr.New(ErrCodeInvalidProfile,
				fmt.Sprintf("profile %q: unsupported credential_source %q", p.Name, o.CredentialSource), nil)
		}
	}

	switch len(matches) {
	case 0:
		return TypeUnknown, awserr.New(ErrCodeInvalidProfile,
			fmt.Sprintf("profile %q has no recognized credential options", p.Name), nil)
	case 1:
	default:
		return TypeUnknown, awserr.New(ErrCodeAmbiguousProfile,
			fmt.Sprintf("profile %q matches multiple credential sources: %v", p.Name, matches), nil)
	}

	t := matches[0]
	if t == TypeStatic && (o.AccessKeyID == "" || o.SecretAccessKey == "") {
		return TypeUnknown, awserr.New(ErrCodeInvalidProfile,
			fmt.Sprintf("profile %q is missing half of its static key pair", p.Name), nil)
	}
	if t == TypeAssumeRole {
		if o.SourceProfile != "" && o.CredentialSource != "" {
			return TypeUnknown, awserr.New(ErrCodeAmbiguousProfile,
				fmt.Sprintf("profile %q sets both source_profile and credential_source", p.Name), nil)
		}
		if o.SourceProfile == "" && o.CredentialSource == "" {
			return TypeUnknown, awserr.New(ErrCodeInvalidProfile,
				fmt.Sprintf("profile %q sets role_arn without a source", p.Name), nil)
		}
	}
	return t, nil
}

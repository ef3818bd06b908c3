// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hill-labs/awsauth/awserr"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
		want Type
	}{
		{
			name: "static",
			opts: Options{AccessKeyID: "AKID", SecretAccessKey: "SECRET"},
			want: TypeStatic,
		},
		{
			name: "assume role with source profile",
			opts: Options{RoleARN: "arn:aws:iam::123456789012:role/demo", SourceProfile: "base"},
			want: TypeAssumeRole,
		},
		{
			name: "assume role with credential source",
			opts: Options{RoleARN: "arn:aws:iam::123456789012:role/demo", CredentialSource: CredentialSourceContainer},
			want: TypeAssumeRole,
		},
		{
			name: "process",
			opts: Options{CredentialProcess: "/usr/local/bin/fetch-creds"},
			want: TypeProcess,
		},
		{
			name: "sso",
			opts: Options{
				SSOStartURL:  "https://example.awsapps.com/start",
				SSORegion:    "us-east-1",
				SSOAccountID: "123456789012",
				SSORoleName:  "Developer",
			},
			want: TypeSSO,
		},
		{
			name: "container marker",
			opts: Options{CredentialSource: CredentialSourceContainer},
			want: TypeContainer,
		},
		{
			name: "instance metadata marker",
			opts: Options{CredentialSource: CredentialSourceInstance},
			want: TypeInstanceMetadata,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Profile{Name: tc.name, Options: tc.opts}
			got, err := p.Classify()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyAmbiguous(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
	}{
		{
			name: "static and assume role",
			opts: Options{
				AccessKeyID:     "AKID",
				SecretAccessKey: "SECRET",
				RoleARN:         "arn:aws:iam::123456789012:role/demo",
				SourceProfile:   "base",
			},
		},
		{
			name: "static and process",
			opts: Options{
				AccessKeyID:       "AKID",
				SecretAccessKey:   "SECRET",
				CredentialProcess: "/bin/fetch",
			},
		},
		{
			name: "process and sso",
			opts: Options{
				CredentialProcess: "/bin/fetch",
				SSOStartURL:       "https://example.awsapps.com/start",
			},
		},
		{
			name: "role with both sources",
			opts: Options{
				RoleARN:          "arn:aws:iam::123456789012:role/demo",
				SourceProfile:    "base",
				CredentialSource: CredentialSourceInstance,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Profile{Name: tc.name, Options: tc.opts}
			_, err := p.Classify()
			require.Error(t, err)
			assert.Equal(t, ErrCodeAmbiguousProfile, err.(awserr.Error).Code())
		})
	}
}

func TestClassifyInvalid(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
	}{
		{name: "empty", opts: Options{}},
		{name: "half a key pair", opts: Options{AccessKeyID: "AKID"}},
		{name: "role without source", opts: Options{RoleARN: "arn:aws:iam::123456789012:role/demo"}},
		{name: "unsupported credential source", opts: Options{CredentialSource: "Martian"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Profile{Name: tc.name, Options: tc.opts}
			_, err := p.Classify()
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalidProfile, err.(awserr.Error).Code())
		})
	}
}

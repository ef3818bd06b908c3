// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hill-labs/awsauth/awserr"
)

const sampleFile = `[default]
aws_access_key_id = AKIDDEFAULT
aws_secret_access_key = SECRETDEFAULT
region = us-west-2

[role]
role_arn = arn:aws:iam::123456789012:role/demo
source_profile = default
external_id = xid
duration_seconds = 1800

[custom]
aws_access_key_id = AKIDCUSTOM
aws_secret_access_key = SECRETCUSTOM
favorite_color = teal
`

func writeSampleFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))
	return path
}

func TestStoreLoad(t *testing.T) {
	s, err := NewStore(writeSampleFile(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"custom", "default", "role"}, s.ListProfileNames())

	def, err := s.GetProfile("default")
	require.NoError(t, err)
	assert.Equal(t, "AKIDDEFAULT", def.Options.AccessKeyID)
	assert.Equal(t, "us-west-2", def.Region)

	role, err := s.GetProfile("role")
	require.NoError(t, err)
	wantRole := Options{
		RoleARN:         "arn:aws:iam::123456789012:role/demo",
		SourceProfile:   "default",
		ExternalID:      "xid",
		DurationSeconds: 1800,
	}
	if diff := cmp.Diff(wantRole, role.Options); diff != "" {
		t.Errorf("role options mismatch (-want +got):\n%s", diff)
	}

	custom, err := s.GetProfile("custom")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"favorite_color": "teal"}, custom.Properties)
}

func TestStoreGetProfileNotFound(t *testing.T) {
	s, err := NewStore(writeSampleFile(t))
	require.NoError(t, err)

	_, err = s.GetProfile("missing")
	require.Error(t, err)
	assert.Equal(t, ErrCodeProfileNotFound, err.(awserr.Error).Code())
}

func TestStoreMissingFile(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, s.ListProfileNames())
}

func TestStoreRegisterProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	s, err := NewStore(path)
	require.NoError(t, err)

	p := &Profile{
		Name: "fresh",
		Options: Options{
			AccessKeyID:     "AKIDFRESH",
			SecretAccessKey: "SECRETFRESH",
		},
		Region:     "eu-central-1",
		Properties: map[string]string{"team": "storage"},
	}
	require.NoError(t, s.RegisterProfile(p))
	assert.NotEmpty(t, p.UniqueKey, "registration must assign a unique key")

	// A fresh store reading the persisted file sees the same profile.
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	got, err := reloaded.GetProfile("fresh")
	require.NoError(t, err)
	assert.Equal(t, p.Options, got.Options)
	assert.Equal(t, "eu-central-1", got.Region)
	assert.Equal(t, map[string]string{"team": "storage"}, got.Properties)
}

func TestStoreRegisterProfileOverwrite(t *testing.T) {
	path := writeSampleFile(t)
	s, err := NewStore(path)
	require.NoError(t, err)

	p := &Profile{
		Name:    "custom",
		Options: Options{AccessKeyID: "ROTATED", SecretAccessKey: "ROTATED"},
	}
	require.NoError(t, s.RegisterProfile(p))

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	got, err := reloaded.GetProfile("custom")
	require.NoError(t, err)
	assert.Equal(t, "ROTATED", got.Options.AccessKeyID)
	assert.Nil(t, got.Properties, "overwrite replaces the whole section")
}

func TestDefaultPathOverride(t *testing.T) {
	t.Setenv(SharedCredentialsFileEnv, "/tmp/alt-credentials")
	assert.Equal(t, "/tmp/alt-credentials", DefaultPath())
}

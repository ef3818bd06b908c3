// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ssoStartURL = "https://example.awsapps.com/start"

func writeSSOToken(t *testing.T, dir string, expiresAt time.Time) {
	t.Helper()
	sum := sha1.Sum([]byte(ssoStartURL))
	doc := fmt.Sprintf(`{"accessToken":"sso-access-token","expiresAt":%q}`,
		expiresAt.Format(time.RFC3339))
	path := filepath.Join(dir, hex.EncodeToString(sum[:])+".json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func newSSOProviderForTest(t *testing.T, tokenExpiry time.Time) (*SSOProvider, *http.Request) {
	t.Helper()

	var got http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = *r
		fmt.Fprintf(w, `{
			"roleCredentials": {
				"accessKeyId": "AKIDSSO",
				"secretAccessKey": "SECRETSSO",
				"sessionToken": "TOKENSSO",
				"expiration": %d
			}
		}`, time.Now().Add(time.Hour).UnixMilli())
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	writeSSOToken(t, dir, tokenExpiry)

	p := NewSSOProvider(server.Client(), ssoStartURL, "us-east-1", "123456789012", "Developer")
	p.CacheDir = dir
	p.Endpoint = server.URL
	return p, &got
}

func TestSSOProvider(t *testing.T) {
	p, got := newSSOProviderForTest(t, time.Now().Add(time.Hour))

	v, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDSSO", v.AccessKeyID)
	assert.Equal(t, SSOProviderName, v.Source)
	assert.True(t, v.CanExpire)

	assert.Equal(t, "sso-access-token", got.Header.Get("x-amz-sso_bearer_token"))
	assert.Equal(t, "123456789012", got.URL.Query().Get("account_id"))
	assert.Equal(t, "Developer", got.URL.Query().Get("role_name"))
}

func TestSSOProviderExpiredToken(t *testing.T) {
	p, _ := newSSOProviderForTest(t, time.Now().Add(-time.Minute))

	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSSOProviderMissingToken(t *testing.T) {
	p := NewSSOProvider(http.DefaultClient, ssoStartURL, "us-east-1", "123456789012", "Developer")
	p.CacheDir = t.TempDir()

	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
}

func TestSSOProviderIncompleteConfig(t *testing.T) {
	p := NewSSOProvider(http.DefaultClient, ssoStartURL, "", "123456789012", "Developer")
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sso_region")
}

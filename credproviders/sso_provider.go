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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/hill-labs/awsauth/credentials"
)

// SSOProviderName provides a name of SSO provider
const SSOProviderName = "SSOProvider"

// An SSOProvider exchanges a cached SSO sign-in token for role credentials
// from the SSO portal. The token cache is written by an external sign-in
// flow; this provider only reads it and fails when the token is missing or
// expired.
type SSOProvider struct {
	StartURL  string
	Region    string
	AccountID string
	RoleName  string

	// CacheDir overrides the SSO token cache directory. Empty means
	// ~/.aws/sso/cache.
	CacheDir string

	// Endpoint overrides the portal base URI. Empty means the regional
	// portal host derived from Region.
	Endpoint string

	httpClient *http.Client
}

// NewSSOProvider returns a pointer to an SSO credential provider.
func NewSSOProvider(httpClient *http.Client, startURL, region, accountID, roleName string) *SSOProvider {
	return &SSOProvider{
		StartURL:   startURL,
		Region:     region,
		AccountID:  accountID,
		RoleName:   roleName,
		httpClient: httpClient,
	}
}

// ssoCachedToken is the persisted sign-in token document.
type ssoCachedToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *SSOProvider) cacheDir() (string, error) {
	if s.CacheDir != "" {
		return s.CacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".aws", "sso", "cache"), nil
}

// cachedTokenPath derives the token file name the sign-in flow uses: the hex
// SHA-1 of the start URL.
func (s *SSOProvider) cachedTokenPath() (string, error) {
	dir, err := s.cacheDir()
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(s.StartURL))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+".json"), nil
}

func (s *SSOProvider) loadCachedToken() (ssoCachedToken, error) {
	var token ssoCachedToken

	path, err := s.cachedTokenPath()
	if err != nil {
		return token, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return token, errors.Wrap(err, "reading cached SSO token")
	}
	if err := json.Unmarshal(raw, &token); err != nil {
		return token, errors.Wrap(err, "parsing cached SSO token")
	}
	if token.AccessToken == "" {
		return token, errors.New("cached SSO token is missing an access token")
	}
	if !token.ExpiresAt.After(time.Now()) {
		return token, errors.New("cached SSO token is expired")
	}
	return token, nil
}

func (s *SSOProvider) endpoint() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return fmt.Sprintf("https://portal.sso.%s.amazonaws.com", s.Region)
}

// Retrieve exchanges the cached token for role credentials.
func (s *SSOProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: SSOProviderName}

	if s.StartURL == "" || s.Region == "" || s.AccountID == "" || s.RoleName == "" {
		return v, errors.New("SSO configuration requires sso_start_url, sso_region, sso_account_id and sso_role_name")
	}

	token, err := s.loadCachedToken()
	if err != nil {
		return v, err
	}

	query := url.Values{}
	query.Set("account_id", s.AccountID)
	query.Set("role_name", s.RoleName)
	req, err := http.NewRequest(http.MethodGet, s.endpoint()+"/federation/credentials?"+query.Encode(), nil)
	if err != nil {
		return v, err
	}
	req.Header.Set("x-amz-sso_bearer_token", token.AccessToken)

	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()
	resp, err := s.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return v, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return v, fmt.Errorf("response failure: %s", resp.Status)
	}

	var ssoResp struct {
		RoleCredentials struct {
			AccessKeyID     string `json:"accessKeyId"`
			SecretAccessKey string `json:"secretAccessKey"`
			SessionToken    string `json:"sessionToken"`
			Expiration      int64  `json:"expiration"`
		} `json:"roleCredentials"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ssoResp); err != nil {
		return v, err
	}

	v.AccessKeyID = ssoResp.RoleCredentials.AccessKeyID
	v.SecretAccessKey = ssoResp.RoleCredentials.SecretAccessKey
	v.SessionToken = ssoResp.RoleCredentials.SessionToken
	if err := verify(v); err != nil {
		return v, err
	}
	if ssoResp.RoleCredentials.Expiration > 0 {
		// The portal reports expiration in epoch milliseconds.
		v.CanExpire = true
		v.Expires = time.UnixMilli(ssoResp.RoleCredentials.Expiration)
	}

	return v, nil
}

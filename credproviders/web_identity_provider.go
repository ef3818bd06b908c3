// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hill-labs/awsauth/credentials"
)

// WebIdentityProviderName provides a name of web identity provider
const WebIdentityProviderName = "WebIdentityProvider"

// defaultSTSEndpoint is the global STS endpoint used for the unsigned web
// identity exchange.
const defaultSTSEndpoint = "https://sts.amazonaws.com/"

// A WebIdentityProvider exchanges an OIDC token file for role credentials
// using AssumeRoleWithWebIdentity. The call is unsigned; the token is the
// proof of identity.
type WebIdentityProvider struct {
	awsRoleArnEnv              EnvVar
	awsWebIdentityTokenFileEnv EnvVar
	awsRoleSessionNameEnv      EnvVar

	httpClient *http.Client

	// Endpoint overrides the STS endpoint. Empty means the global endpoint.
	Endpoint string
}

// NewWebIdentityProvider returns a pointer to a web identity provider.
func NewWebIdentityProvider(httpClient *http.Client) *WebIdentityProvider {
	return &WebIdentityProvider{
		// awsRoleArnEnv is the environment variable for AWS_ROLE_ARN
		awsRoleArnEnv: EnvVar("AWS_ROLE_ARN"),
		// awsWebIdentityTokenFileEnv is the environment variable for AWS_WEB_IDENTITY_TOKEN_FILE
		awsWebIdentityTokenFileEnv: EnvVar("AWS_WEB_IDENTITY_TOKEN_FILE"),
		// awsRoleSessionNameEnv is the environment variable for AWS_ROLE_SESSION_NAME
		awsRoleSessionNameEnv: EnvVar("AWS_ROLE_SESSION_NAME"),
		httpClient:             httpClient,
	}
}

func (w *WebIdentityProvider) endpoint() string {
	if w.Endpoint != "" {
		return w.Endpoint
	}
	return defaultSTSEndpoint
}

// Retrieve retrieves the keys from the AWS service.
func (w *WebIdentityProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: WebIdentityProviderName}

	roleArn := w.awsRoleArnEnv.Get()
	tokenFile := w.awsWebIdentityTokenFileEnv.Get()
	if tokenFile == "" && roleArn == "" {
		return v, errors.New("AWS_WEB_IDENTITY_TOKEN_FILE and AWS_ROLE_ARN are missing")
	}
	if tokenFile != "" && roleArn == "" {
		return v, errors.New("AWS_WEB_IDENTITY_TOKEN_FILE is set, but AWS_ROLE_ARN is missing")
	}
	if tokenFile == "" && roleArn != "" {
		return v, errors.New("AWS_ROLE_ARN is set, but AWS_WEB_IDENTITY_TOKEN_FILE is missing")
	}
	token, err := os.ReadFile(tokenFile)
	if err != nil {
		return v, err
	}

	sessionName := w.awsRoleSessionNameEnv.Get()
	if sessionName == "" {
		// Use a UUID if the RoleSessionName is not given.
		sessionName = uuid.NewString()
	}

	query := url.Values{}
	query.Set("Action", "AssumeRoleWithWebIdentity")
	query.Set("Version", "2011-06-15")
	query.Set("RoleSessionName", sessionName)
	query.Set("RoleArn", roleArn)
	query.Set("WebIdentityToken", string(token))

	req, err := http.NewRequest(http.MethodPost, w.endpoint()+"?"+query.Encode(), nil)
	if err != nil {
		return v, err
	}
	req.Header.Set("Accept", "application/json")

	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()
	resp, err := w.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return v, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return v, fmt.Errorf("response failure: %s", resp.Status)
	}

	var stsResp struct {
		Response struct {
			Result struct {
				Credentials struct {
					AccessKeyID     string  `json:"AccessKeyId"`
					SecretAccessKey string  `json:"SecretAccessKey"`
					Token           string  `json:"SessionToken"`
					Expiration      float64 `json:"Expiration"`
				} `json:"Credentials"`
			} `json:"AssumeRoleWithWebIdentityResult"`
		} `json:"AssumeRoleWithWebIdentityResponse"`
	}

	err = json.NewDecoder(resp.Body).Decode(&stsResp)
	if err != nil {
		return v, err
	}
	v.AccessKeyID = stsResp.Response.Result.Credentials.AccessKeyID
	v.SecretAccessKey = stsResp.Response.Result.Credentials.SecretAccessKey
	v.SessionToken = stsResp.Response.Result.Credentials.Token
	if !v.HasKeys() {
		return v, errors.New("failed to retrieve web identity keys")
	}
	sec := int64(stsResp.Response.Result.Credentials.Expiration)
	if sec > 0 {
		v.CanExpire = true
		v.Expires = time.Unix(sec, 0)
	}

	return v, nil
}

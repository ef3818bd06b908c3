// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package sts implements the minimal STS surface the credential chain needs:
// a signed AssumeRole call.
package sts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hill-labs/awsauth/credentials"
	"github.com/hill-labs/awsauth/credproviders"
	"github.com/hill-labs/awsauth/sigv4"
)

const (
	defaultEndpoint = "https://sts.amazonaws.com/"
	defaultRegion   = "us-east-1"

	apiVersion  = "2011-06-15"
	serviceName = "sts"

	defaultHTTPTimeout = 10 * time.Second
)

// Client calls STS. Every request is signed with the source credentials of
// the exchange it performs; the client itself holds no credentials.
type Client struct {
	// HTTPClient issues the requests. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Endpoint overrides the STS endpoint. Empty means the global endpoint.
	Endpoint string

	// Region is the signing region. Empty means us-east-1, matching the
	// global endpoint.
	Region string
}

var _ credproviders.AssumeRoleAPI = (*Client)(nil)

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return defaultEndpoint
}

func (c *Client) region() string {
	if c.Region != "" {
		return c.Region
	}
	return defaultRegion
}

// AssumeRole exchanges the source credentials for temporary credentials of
// the role named in params.
func (c *Client) AssumeRole(ctx context.Context, source credentials.Value, params credproviders.AssumeRoleParams) (credentials.Value, error) {
	var v credentials.Value

	if params.RoleARN == "" {
		return v, errors.New("sts: AssumeRole requires a role ARN")
	}
	if params.SessionName == "" {
		return v, errors.New("sts: AssumeRole requires a session name")
	}

	form := url.Values{}
	form.Set("Action", "AssumeRole")
	form.Set("Version", apiVersion)
	form.Set("RoleArn", params.RoleARN)
	form.Set("RoleSessionName", params.SessionName)
	if params.ExternalID != "" {
		form.Set("ExternalId", params.ExternalID)
	}
	if params.Duration > 0 {
		form.Set("DurationSeconds", strconv.Itoa(int(params.Duration/time.Second)))
	}
	body := form.Encode()

	req, err := http.NewRequest(http.MethodPost, c.endpoint(), nil)
	if err != nil {
		return v, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	signer := sigv4.NewSigner(credentials.NewCredentials(&credproviders.StaticProvider{Value: source}))
	if _, err := signer.Sign(req, strings.NewReader(body), serviceName, c.region(), time.Now()); err != nil {
		return v, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()
	resp, err := c.httpClient().Do(req.WithContext(ctx))
	if err != nil {
		return v, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return v, fmt.Errorf("sts: response failure: %s", resp.Status)
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
			} `json:"AssumeRoleResult"`
		} `json:"AssumeRoleResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stsResp); err != nil {
		return v, err
	}

	creds := stsResp.Response.Result.Credentials
	v.AccessKeyID = creds.AccessKeyID
	v.SecretAccessKey = creds.SecretAccessKey
	v.SessionToken = creds.Token
	if !v.HasKeys() {
		return v, errors.New("sts: failed to retrieve assume role keys")
	}
	if sec := int64(creds.Expiration); sec > 0 {
		v.CanExpire = true
		v.Expires = time.Unix(sec, 0)
	}

	return v, nil
}

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
	"io"
	"net/http"
	"time"

	"github.com/hill-labs/awsauth/credentials"
)

// Ec2ProviderName provides a name of EC2 provider
const Ec2ProviderName = "Ec2Provider"

const (
	awsEC2URI       = "http://169.254.169.254/"
	awsEC2RolePath  = "latest/meta-data/iam/security-credentials/"
	awsEC2TokenPath = "latest/api/token"

	defaultEC2TTLSeconds = "30"
)

// An Ec2Provider retrieves credentials from EC2 instance metadata. It speaks
// IMDSv2, fetching a session token first, and falls back to IMDSv1 when the
// token endpoint is unreachable.
type Ec2Provider struct {
	httpClient *http.Client

	// Endpoint overrides the instance metadata base URI. Empty means the
	// standard link-local address.
	Endpoint string
}

// NewEc2Provider returns a pointer to an EC2 credential provider.
func NewEc2Provider(httpClient *http.Client) *Ec2Provider {
	return &Ec2Provider{
		httpClient: httpClient,
	}
}

func (e *Ec2Provider) uri() string {
	if e.Endpoint != "" {
		return e.Endpoint
	}
	return awsEC2URI
}

func (e *Ec2Provider) executeAWSHTTPRequest(ctx context.Context, req *http.Request) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()
	resp, err := e.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("response failure: %s", resp.Status)
	}
	return resp.Body, nil
}

// getToken fetches an IMDSv2 session token. An unreachable or refusing token
// endpoint yields an empty token, which downgrades the remaining calls to
// IMDSv1.
func (e *Ec2Provider) getToken(ctx context.Context) string {
	req, err := http.NewRequest(http.MethodPut, e.uri()+awsEC2TokenPath, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("X-aws-ec2-metadata-token-ttl-seconds", defaultEC2TTLSeconds)

	r, err := e.executeAWSHTTPRequest(ctx, req)
	if err != nil {
		return ""
	}
	defer r.Close()

	token, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return string(token)
}

func (e *Ec2Provider) getMetadata(ctx context.Context, path, token string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, e.uri()+path, nil)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set("X-aws-ec2-metadata-token", token)
	}

	r, err := e.executeAWSHTTPRequest(ctx, req)
	if err != nil {
		return "", err
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Retrieve retrieves the keys from EC2 instance metadata.
func (e *Ec2Provider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: Ec2ProviderName}

	token := e.getToken(ctx)

	role, err := e.getMetadata(ctx, awsEC2RolePath, token)
	if err != nil {
		return v, err
	}
	if len(role) == 0 {
		return v, errors.New("unable to retrieve role_name from EC2 metadata")
	}

	doc, err := e.getMetadata(ctx, awsEC2RolePath+role, token)
	if err != nil {
		return v, err
	}

	var ec2Resp struct {
		AccessKeyID     string    `json:"AccessKeyId"`
		SecretAccessKey string    `json:"SecretAccessKey"`
		Token           string    `json:"Token"`
		Expiration      time.Time `json:"Expiration"`
	}
	if err := json.Unmarshal([]byte(doc), &ec2Resp); err != nil {
		return v, err
	}

	v.AccessKeyID = ec2Resp.AccessKeyID
	v.SecretAccessKey = ec2Resp.SecretAccessKey
	v.SessionToken = ec2Resp.Token
	if err := verify(v); err != nil {
		return v, err
	}
	if !ec2Resp.Expiration.IsZero() {
		v.CanExpire = true
		v.Expires = ec2Resp.Expiration
	}

	return v, nil
}

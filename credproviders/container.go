// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package credproviders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hill-labs/awsauth/credentials"
)

// containerResponse is the credential document served by the ECS and EKS
// container endpoints.
type containerResponse struct {
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	Token           string    `json:"Token"`
	Expiration      time.Time `json:"Expiration"`
}

// fetchContainerCredentials performs the endpoint request and decodes the
// credential document. The call is bounded by defaultHTTPTimeout.
func fetchContainerCredentials(ctx context.Context, httpClient *http.Client, req *http.Request) (containerResponse, error) {
	var doc containerResponse

	req.Header.Set("Accept", "application/json")

	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()
	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("response failure: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (doc containerResponse) value(source string) (credentials.Value, error) {
	v := credentials.Value{
		AccessKeyID:     doc.AccessKeyID,
		SecretAccessKey: doc.SecretAccessKey,
		SessionToken:    doc.Token,
		Source:          source,
	}
	if err := verify(v); err != nil {
		return v, err
	}
	if !doc.Expiration.IsZero() {
		v.CanExpire = true
		v.Expires = doc.Expiration
	}
	return v, nil
}

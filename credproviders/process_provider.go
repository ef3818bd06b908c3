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
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/hill-labs/awsauth/credentials"
)

// ProcessProviderName provides a name of external process provider
const ProcessProviderName = "ProcessProvider"

// processTimeout bounds the external credential process. Processes that
// prompt or hang must not block resolution forever.
const processTimeout = 1 * time.Minute

// A ProcessProvider runs an external command and parses the credential
// document it prints to stdout. The command is run through the shell so
// profile files can specify arguments and pipelines.
type ProcessProvider struct {
	Command string
}

// NewProcessProvider returns a provider running the given shell command.
func NewProcessProvider(command string) *ProcessProvider {
	return &ProcessProvider{Command: command}
}

// processResponse is the version 1 credential document an external process
// prints to stdout.
type processResponse struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// Retrieve runs the external process and parses its output.
func (p *ProcessProvider) Retrieve(ctx context.Context) (credentials.Value, error) {
	v := credentials.Value{Source: ProcessProviderName}

	if p.Command == "" {
		return v, errors.New("credential process command is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return v, errors.Wrapf(err, "credential process failed: %s", exitErr.Stderr)
		}
		return v, errors.Wrap(err, "credential process failed")
	}

	var doc processResponse
	if err := json.Unmarshal(out, &doc); err != nil {
		return v, errors.Wrap(err, "parsing credential process output")
	}
	if doc.Version != 1 {
		return v, fmt.Errorf("unsupported credential process document version: %d", doc.Version)
	}

	v.AccessKeyID = doc.AccessKeyID
	v.SecretAccessKey = doc.SecretAccessKey
	v.SessionToken = doc.SessionToken
	if err := verify(v); err != nil {
		return v, err
	}
	if doc.Expiration != "" {
		expires, err := time.Parse(time.RFC3339, doc.Expiration)
		if err != nil {
			return v, errors.Wrap(err, "parsing credential process expiration")
		}
		v.CanExpire = true
		v.Expires = expires
	}

	return v, nil
}

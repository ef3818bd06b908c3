// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hill-labs/awsauth/awserr"
	"github.com/hill-labs/awsauth/credentials"
)

const streamingAlgorithm = "AWS4-HMAC-SHA256-PAYLOAD"

// A StreamSigner signs the chunks of a streaming body. The signature of the
// initial request (signed with the StreamingPayload sentinel as its body
// hash) seeds the chain; each chunk's signature folds in the previous one, so
// chunk signatures are only meaningful when consumed in strict emission
// order. A trailing zero-length chunk terminates the stream.
//
// A StreamSigner is not safe for concurrent use: the chunk chain is
// inherently sequential.
type StreamSigner struct {
	region  string
	service string

	credValues credentials.Value

	prevSignature string
}

// NewStreamSigner returns a StreamSigner seeded with the signature of the
// initial request.
func NewStreamSigner(region, service, seedSignature string, creds credentials.Value) *StreamSigner {
	return &StreamSigner{
		region:        region,
		service:       service,
		credValues:    creds,
		prevSignature: seedSignature,
	}
}

// GetSignature signs the next chunk of the stream, advancing the signature
// chain. Pass a nil or empty chunk to sign the terminating zero-length chunk.
func (s *StreamSigner) GetSignature(chunk []byte, signTime time.Time) (string, error) {
	if s.credValues.SecretAccessKey == "" {
		return "", awserr.New(ErrCodeSigningConfiguration,
			"cannot sign stream chunks without a secret access key", nil)
	}
	if signTime.IsZero() {
		return "", awserr.New(ErrCodeSigningConfiguration,
			"cannot sign stream chunks without a timestamp", nil)
	}

	formattedTime := signTime.UTC().Format(timeFormat)
	formattedShortTime := signTime.UTC().Format(shortTimeFormat)
	scope := buildSigningScope(s.region, s.service, formattedShortTime)

	chunkHash := sha256.Sum256(chunk)

	stringToSign := strings.Join([]string{
		streamingAlgorithm,
		formattedTime,
		scope,
		s.prevSignature,
		emptyStringSHA256,
		hex.EncodeToString(chunkHash[:]),
	}, "\n")

	key := deriveSigningKey(s.region, s.service, s.credValues.SecretAccessKey, formattedShortTime)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))
	s.prevSignature = signature

	return signature, nil
}

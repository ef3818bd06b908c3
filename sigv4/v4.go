// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package sigv4 signs HTTP requests with AWS Signature Version 4.
//
// Signing is a pure function of the request's canonical form and a credential
// value: it performs no network I/O, never retries, and is safe to run from
// arbitrarily many goroutines. Header signing writes an Authorization header;
// Presign instead embeds the signature in query parameters so the URL itself
// carries the grant.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hill-labs/awsauth/awserr"
	"github.com/hill-labs/awsauth/credentials"
)

const (
	authHeaderPrefix = "AWS4-HMAC-SHA256"
	timeFormat       = "20060102T150405Z"
	shortTimeFormat  = "20060102"
	awsV4Request     = "aws4_request"

	// emptyStringSHA256 is a SHA256 of an empty string
	emptyStringSHA256 = `e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855`
)

const (
	// UnsignedPayload is the sentinel placed in the canonical request where
	// the payload hash would go when the body is not signed.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// StreamingPayload announces a chunk-signed streaming body. The request
	// carrying it is signed normally and that signature seeds a StreamSigner.
	StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"
)

// ErrCodeSigningConfiguration is returned for malformed signing inputs, such
// as a missing host or zero timestamp. Signing errors are always fatal to the
// request being signed; the signer never retries.
const ErrCodeSigningConfiguration = "SigningConfiguration"

// Bounds on the validity window of a presigned URL.
const (
	MinPresignExpiry = 1 * time.Second
	MaxPresignExpiry = 7 * 24 * time.Hour
)

const (
	amzAlgorithmKey     = "X-Amz-Algorithm"
	amzCredentialKey    = "X-Amz-Credential"
	amzDateKey          = "X-Amz-Date"
	amzExpiresKey       = "X-Amz-Expires"
	amzSignedHeadersKey = "X-Amz-SignedHeaders"
	amzSignatureKey     = "X-Amz-Signature"
	amzSecurityTokenKey = "X-Amz-Security-Token"
	contentSHAKey       = "X-Amz-Content-Sha256"
)

type rule interface {
	IsValid(value string) bool
}

type rules []rule

// IsValid returns true if any rule in the list considers the value valid.
func (r rules) IsValid(value string) bool {
	for _, rule := range r {
		if rule.IsValid(value) {
			return true
		}
	}
	return false
}

type mapRule map[string]struct{}

func (m mapRule) IsValid(value string) bool {
	_, ok := m[value]
	return ok
}

type excludeList struct {
	rule
}

func (e excludeList) IsValid(value string) bool {
	return !e.rule.IsValid(value)
}

// ignoredHeaders never participate in the canonical headers. Everything else
// on the request is signed.
var ignoredHeaders = rules{
	excludeList{
		mapRule{
			"Authorization":   struct{}{},
			"User-Agent":      struct{}{},
			"X-Amzn-Trace-Id": struct{}{},
		},
	},
}

// Signer applies Signature Version 4 signing to HTTP requests.
type Signer struct {
	// Credentials resolves the key material used to sign.
	Credentials *credentials.Credentials

	// DisableURIPathEscaping leaves the URI path exactly as the caller built
	// it instead of double-escaping it into the canonical request. S3-style
	// object paths require this.
	DisableURIPathEscaping bool

	// UnsignedPayload substitutes the UNSIGNED-PAYLOAD sentinel for the body
	// hash regardless of the body.
	UnsignedPayload bool

	// Logger, when set, receives the canonical string and string-to-sign of
	// every signing operation at debug level.
	Logger *logrus.Logger
}

// NewSigner returns a Signer pointer configured with the credentials and
// optional option functions.
func NewSigner(creds *credentials.Credentials, options ...func(*Signer)) *Signer {
	v4 := &Signer{
		Credentials: creds,
	}
	for _, option := range options {
		option(v4)
	}
	return v4
}

type signingCtx struct {
	ServiceName      string
	Region           string
	Request          *http.Request
	Body             io.ReadSeeker
	Query            url.Values
	Time             time.Time
	ExpireTime       time.Duration
	SignedHeaderVals http.Header

	DisableURIPathEscaping bool

	credValues      credentials.Value
	isPresign       bool
	unsignedPayload bool

	bodyDigest         string
	signedHeaders      string
	canonicalHeaders   string
	canonicalString    string
	credentialString   string
	stringToSign       string
	signature          string
	formattedTime      string
	formattedShortTime string
}

// Sign signs the request, returning the signed headers which were added to
// the request.
//
// The request must not be signed again without first removing the
// Authorization header, x-amz-date, and x-amz-security-token; Sign overwrites
// all three, so re-signing the same request value is safe.
func (v4 Signer) Sign(r *http.Request, body io.ReadSeeker, service, region string, signTime time.Time) (http.Header, error) {
	return v4.signWithBody(r, body, service, region, 0, false, signTime)
}

// Presign signs the request for the duration of expire, embedding the
// signature in query parameters instead of the Authorization header. The
// returned header values must still be set on the request a presigned URL is
// executed with.
//
// The payload hash is forced to the UNSIGNED-PAYLOAD sentinel: the holder of
// a presigned URL supplies the body, so its bytes cannot be bound in advance.
func (v4 Signer) Presign(r *http.Request, body io.ReadSeeker, service, region string, expire time.Duration, signTime time.Time) (http.Header, error) {
	return v4.signWithBody(r, body, service, region, expire, true, signTime)
}

func (v4 Signer) signWithBody(r *http.Request, body io.ReadSeeker, service, region string, expire time.Duration, isPresign bool, signTime time.Time) (http.Header, error) {
	if isPresign && (expire < MinPresignExpiry || expire > MaxPresignExpiry) {
		return nil, awserr.New(ErrCodeSigningConfiguration,
			fmt.Sprintf("presign expiry %s outside of %s to %s", expire, MinPresignExpiry, MaxPresignExpiry), nil)
	}

	ctx := &signingCtx{
		Request:                r,
		Body:                   body,
		Query:                  r.URL.Query(),
		Time:                   signTime,
		ExpireTime:             expire,
		isPresign:              isPresign,
		ServiceName:            service,
		Region:                 region,
		DisableURIPathEscaping: v4.DisableURIPathEscaping,
		unsignedPayload:        v4.UnsignedPayload,
	}

	// Canonical query entries are ordered by key, then by value.
	for key := range ctx.Query {
		sort.Strings(ctx.Query[key])
	}

	ctx.handlePresignRemoval()

	var err error
	ctx.credValues, err = v4.Credentials.Get(r.Context())
	if err != nil {
		return http.Header{}, err
	}

	ctx.sanitizeHostForHeader()
	ctx.assignAmzQueryValues()
	if err := ctx.build(); err != nil {
		return nil, err
	}

	// If the request is not presigned the body should be attached to it. This
	// prevents the confusion of wanting to send a signed request without
	// the body the request was signed for attached.
	if !(v4.UnsignedPayload || ctx.isPresign) {
		var reader io.ReadCloser
		if body != nil {
			var ok bool
			if reader, ok = body.(io.ReadCloser); !ok {
				reader = io.NopCloser(body)
			}
		}
		r.Body = reader
	}

	if v4.Logger != nil {
		v4.logSigningInfo(ctx)
	}

	return ctx.SignedHeaderVals, nil
}

func (ctx *signingCtx) sanitizeHostForHeader() {
	r := ctx.Request
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if port := portOnly(host); port != "" && isDefaultPort(r.URL.Scheme, port) {
		r.Host = stripPort(host)
	}
}

func (ctx *signingCtx) handlePresignRemoval() {
	if !ctx.isPresign {
		return
	}

	// The credentials of a previous presign attempt must not leak into this
	// signature.
	ctx.removePresign()
	ctx.Request.URL.RawQuery = ctx.Query.Encode()
}

func (ctx *signingCtx) removePresign() {
	ctx.Query.Del(amzAlgorithmKey)
	ctx.Query.Del(amzSignatureKey)
	ctx.Query.Del(amzSecurityTokenKey)
	ctx.Query.Del(amzDateKey)
	ctx.Query.Del(amzExpiresKey)
	ctx.Query.Del(amzCredentialKey)
	ctx.Query.Del(amzSignedHeadersKey)
}

func (ctx *signingCtx) assignAmzQueryValues() {
	if ctx.isPresign {
		ctx.Query.Set(amzAlgorithmKey, authHeaderPrefix)
		if ctx.credValues.SessionToken != "" {
			ctx.Query.Set(amzSecurityTokenKey, ctx.credValues.SessionToken)
		}
		return
	}

	if ctx.credValues.SessionToken != "" {
		ctx.Request.Header.Set(amzSecurityTokenKey, ctx.credValues.SessionToken)
	}
}

func (ctx *signingCtx) build() error {
	if ctx.Request.Host == "" && ctx.Request.URL.Host == "" {
		return awserr.New(ErrCodeSigningConfiguration,
			"cannot build a canonical request without a host", nil)
	}
	if ctx.Time.IsZero() {
		return awserr.New(ErrCodeSigningConfiguration,
			"cannot build a canonical request without a timestamp", nil)
	}

	ctx.buildTime()
	ctx.buildCredentialString()
	if err := ctx.buildBodyDigest(); err != nil {
		return err
	}

	ctx.buildCanonicalHeaders(ignoredHeaders, ctx.Request.Header)
	ctx.buildCanonicalString()
	ctx.buildStringToSign()
	ctx.buildSignature()

	if ctx.isPresign {
		ctx.Request.URL.RawQuery += "&" + amzSignatureKey + "=" + ctx.signature
	} else {
		parts := []string{
			authHeaderPrefix + " Credential=" + ctx.credValues.AccessKeyID + "/" + ctx.credentialString,
			"SignedHeaders=" + ctx.signedHeaders,
			"Signature=" + ctx.signature,
		}
		ctx.Request.Header.Set("Authorization", strings.Join(parts, ", "))
	}

	return nil
}

func (ctx *signingCtx) buildTime() {
	ctx.formattedTime = ctx.Time.UTC().Format(timeFormat)
	ctx.formattedShortTime = ctx.Time.UTC().Format(shortTimeFormat)

	if ctx.isPresign {
		duration := int64(ctx.ExpireTime / time.Second)
		ctx.Query.Set(amzDateKey, ctx.formattedTime)
		ctx.Query.Set(amzExpiresKey, strconv.FormatInt(duration, 10))
	} else {
		ctx.Request.Header.Set(amzDateKey, ctx.formattedTime)
	}
}

func (ctx *signingCtx) buildCredentialString() {
	ctx.credentialString = buildSigningScope(ctx.Region, ctx.ServiceName, ctx.formattedShortTime)

	if ctx.isPresign {
		ctx.Query.Set(amzCredentialKey, ctx.credValues.AccessKeyID+"/"+ctx.credentialString)
	}
}

func (ctx *signingCtx) buildBodyDigest() error {
	hash := ctx.Request.Header.Get(contentSHAKey)
	if hash == "" {
		switch {
		case ctx.unsignedPayload || ctx.isPresign:
			hash = UnsignedPayload
		case ctx.Body == nil:
			hash = emptyStringSHA256
		default:
			if !IsReaderSeekable(ctx.Body) {
				return fmt.Errorf("cannot use unseekable request body %T, for signed request with body", ctx.Body)
			}
			hashBytes, err := makeSha256Reader(ctx.Body)
			if err != nil {
				return err
			}
			hash = hex.EncodeToString(hashBytes)
		}

		if ctx.unsignedPayload {
			ctx.Request.Header.Set(contentSHAKey, hash)
		}
	}
	ctx.bodyDigest = hash

	return nil
}

func (ctx *signingCtx) buildCanonicalHeaders(r rule, header http.Header) {
	ctx.SignedHeaderVals = make(http.Header)

	var headers []string
	headers = append(headers, "host")
	for k, v := range header {
		if !r.IsValid(k) {
			continue // ignored header
		}

		lowerCaseKey := strings.ToLower(k)
		if _, ok := ctx.SignedHeaderVals[lowerCaseKey]; ok {
			// include additional values
			ctx.SignedHeaderVals[lowerCaseKey] = append(ctx.SignedHeaderVals[lowerCaseKey], v...)
			continue
		}

		headers = append(headers, lowerCaseKey)
		ctx.SignedHeaderVals[lowerCaseKey] = v
	}
	sort.Strings(headers)

	ctx.signedHeaders = strings.Join(headers, ";")

	if ctx.isPresign {
		ctx.Query.Set(amzSignedHeadersKey, ctx.signedHeaders)
	}

	headerItems := make([]string, len(headers))
	for i, k := range headers {
		if k == "host" {
			if ctx.Request.Host != "" {
				headerItems[i] = "host:" + ctx.Request.Host
			} else {
				headerItems[i] = "host:" + ctx.Request.URL.Host
			}
		} else {
			headerValues := make([]string, len(ctx.SignedHeaderVals[k]))
			for i, v := range ctx.SignedHeaderVals[k] {
				headerValues[i] = strings.TrimSpace(v)
			}
			headerItems[i] = k + ":" + strings.Join(headerValues, ",")
		}
	}
	stripExcessSpaces(headerItems)
	ctx.canonicalHeaders = strings.Join(headerItems, "\n")
}

func (ctx *signingCtx) buildCanonicalString() {
	ctx.Request.URL.RawQuery = strings.ReplaceAll(ctx.Query.Encode(), "+", "%20")

	uri := getURIPath(ctx.Request.URL)

	if !ctx.DisableURIPathEscaping {
		uri = escapePath(uri, false)
	}

	ctx.canonicalString = strings.Join([]string{
		ctx.Request.Method,
		uri,
		ctx.Request.URL.RawQuery,
		ctx.canonicalHeaders + "\n",
		ctx.signedHeaders,
		ctx.bodyDigest,
	}, "\n")
}

func (ctx *signingCtx) buildStringToSign() {
	hash := sha256.Sum256([]byte(ctx.canonicalString))
	ctx.stringToSign = strings.Join([]string{
		authHeaderPrefix,
		ctx.formattedTime,
		ctx.credentialString,
		hex.EncodeToString(hash[:]),
	}, "\n")
}

func (ctx *signingCtx) buildSignature() {
	key := deriveSigningKey(ctx.Region, ctx.ServiceName, ctx.credValues.SecretAccessKey, ctx.formattedShortTime)
	signature := hmacSHA256(key, []byte(ctx.stringToSign))
	ctx.signature = hex.EncodeToString(signature)
}

const logSignInfoMsg = `Request Signature:
---[ CANONICAL STRING  ]-----------------------------
%s
---[ STRING TO SIGN ]--------------------------------
%s%s
-----------------------------------------------------`
const logSignedURLMsg = `
---[ SIGNED URL ]------------------------------------
%s`

func (v4 Signer) logSigningInfo(ctx *signingCtx) {
	signedURLMsg := ""
	if ctx.isPresign {
		signedURLMsg = fmt.Sprintf(logSignedURLMsg, ctx.Request.URL.String())
	}
	v4.Logger.Debugf(logSignInfoMsg, ctx.canonicalString, ctx.stringToSign, signedURLMsg)
}

// buildSigningScope formats the credential scope binding a signature to its
// date, region, and service.
func buildSigningScope(region, service, dt string) string {
	return strings.Join([]string{
		dt,
		region,
		service,
		awsV4Request,
	}, "/")
}

// deriveSigningKey chains HMAC-SHA256 over the date, region, service, and
// terminator to produce the signing key.
func deriveSigningKey(region, service, secretKey, dt string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dt))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	signingKey := hmacSHA256(kService, []byte(awsV4Request))
	return signingKey
}

func hmacSHA256(key []byte, data []byte) []byte {
	hash := hmac.New(sha256.New, key)
	hash.Write(data)
	return hash.Sum(nil)
}

func makeSha256Reader(reader io.ReadSeeker) (hashBytes []byte, err error) {
	hash := sha256.New()
	start, err := reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer func() {
		// ensure error is return if unable to seek back to start of payload.
		_, err = reader.Seek(start, io.SeekStart)
	}()

	// Use CopyN to avoid allocating the 32KB buffer in io.Copy for bodies
	// smaller than 32KB
	size, err := seekerLen(reader)
	if err != nil {
		_, _ = io.Copy(hash, reader)
	} else {
		_, _ = io.CopyN(hash, reader, size)
	}

	return hash.Sum(nil), nil
}

const doubleSpace = "  "

// stripExcessSpaces will rewrite the passed in slice's string values to not
// contain multiple side-by-side spaces.
func stripExcessSpaces(vals []string) {
	var j, k, l, m, spaces int
	for i, str := range vals {
		// Trim trailing spaces
		for j = len(str) - 1; j >= 0 && str[j] == ' '; j-- {
		}

		// Trim leading spaces
		for k = 0; k < j && str[k] == ' '; k++ {
		}
		str = str[k : j+1]

		// Strip multiple spaces.
		j = strings.Index(str, doubleSpace)
		if j < 0 {
			vals[i] = str
			continue
		}

		buf := []byte(str)
		for k, m, l = j, j, len(buf); k < l; k++ {
			if buf[k] == ' ' {
				if spaces == 0 {
					// First space.
					buf[m] = buf[k]
					m++
				}
				spaces++
			} else {
				// End of multiple spaces.
				spaces = 0
				buf[m] = buf[k]
				m++
			}
		}

		vals[i] = string(buf[:m])
	}
}

// getURIPath returns the escaped URI component from the provided URL.
func getURIPath(u *url.URL) string {
	var uri string

	if len(u.Opaque) > 0 {
		uri = "/" + strings.Join(strings.Split(u.Opaque, "/")[3:], "/")
	} else {
		uri = u.EscapedPath()
	}

	if len(uri) == 0 {
		uri = "/"
	}

	return uri
}

// noEscape marks the bytes that are never percent-encoded in a canonical
// path: unreserved characters per the signing rules, which notably encode a
// space as %20 and never as '+'.
var noEscape [256]bool

func init() {
	for i := 0; i < len(noEscape); i++ {
		noEscape[i] = (i >= 'A' && i <= 'Z') ||
			(i >= 'a' && i <= 'z') ||
			(i >= '0' && i <= '9') ||
			i == '-' ||
			i == '.' ||
			i == '_' ||
			i == '~'
	}
}

// escapePath escapes part of a URL path for the canonical request.
func escapePath(path string, encodeSep bool) string {
	var buf strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if noEscape[c] || (c == '/' && !encodeSep) {
			buf.WriteByte(c)
		} else {
			fmt.Fprintf(&buf, "%%%02X", c)
		}
	}
	return buf.String()
}

func stripPort(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return hostport
	}
	if i := strings.IndexByte(hostport, ']'); i != -1 {
		return strings.TrimPrefix(hostport[:i], "[")
	}
	return hostport[:colon]
}

func portOnly(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return ""
	}
	if i := strings.Index(hostport, "]:"); i != -1 {
		return hostport[i+len("]:"):]
	}
	if strings.Contains(hostport, "]") {
		return ""
	}
	return hostport[colon+len(":"):]
}

func isDefaultPort(scheme, port string) bool {
	if port == "" {
		return true
	}

	lowerCaseScheme := strings.ToLower(scheme)
	if (lowerCaseScheme == "http" && port == "80") || (lowerCaseScheme == "https" && port == "443") {
		return true
	}

	return false
}

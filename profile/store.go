// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/hill-labs/awsauth/awserr"
)

// SharedCredentialsFileEnv overrides the location of the shared credentials
// file.
const SharedCredentialsFileEnv = "AWS_SHARED_CREDENTIALS_FILE"

// recognizedKeys are the section keys mapped onto Options and the profile
// region. Everything else is preserved verbatim in Profile.Properties.
var recognizedKeys = map[string]struct{}{
	"aws_access_key_id":     {},
	"aws_secret_access_key": {},
	"aws_session_token":     {},
	"role_arn":              {},
	"source_profile":        {},
	"credential_source":     {},
	"external_id":           {},
	"role_session_name":     {},
	"duration_seconds":      {},
	"credential_process":    {},
	"sso_start_url":         {},
	"sso_region":            {},
	"sso_account_id":        {},
	"sso_role_name":         {},
	"region":                {},
}

// DefaultPath returns the shared credentials file location, honoring the
// SharedCredentialsFileEnv override.
func DefaultPath() string {
	if p := os.Getenv(SharedCredentialsFileEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "credentials")
}

// A Store parses and persists the named profile sections of one shared
// credentials file. It holds the only mutable profile state and is passed by
// reference into providers so tests can substitute isolated instances.
type Store struct {
	path string

	mu       sync.RWMutex
	file     *ini.File
	profiles map[string]*Profile
}

// NewStore loads the shared credentials file at path. An empty path falls
// back to DefaultPath. A missing file yields an empty store; a malformed one
// fails.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}

	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse shared credentials file %s", path)
	}

	s := &Store{
		path:     path,
		file:     file,
		profiles: make(map[string]*Profile),
	}
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		p, err := parseSection(sec)
		if err != nil {
			return nil, err
		}
		s.profiles[p.Name] = p
	}
	return s, nil
}

func parseSection(sec *ini.Section) (*Profile, error) {
	var opts Options
	if err := sec.MapTo(&opts); err != nil {
		return nil, errors.Wrapf(err, "unable to parse profile %q", sec.Name())
	}

	p := &Profile{
		Name:    sec.Name(),
		Options: opts,
		Region:  sec.Key("region").String(),
	}
	for _, k := range sec.Keys() {
		if _, ok := recognizedKeys[k.Name()]; ok {
			continue
		}
		if p.Properties == nil {
			p.Properties = make(map[string]string)
		}
		p.Properties[k.Name()] = k.Value()
	}
	return p, nil
}

// GetProfile returns the named profile, or an ErrCodeProfileNotFound error.
func (s *Store) GetProfile(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[name]
	if !ok {
		return nil, awserr.New(ErrCodeProfileNotFound,
			fmt.Sprintf("profile %q not found in %s", name, s.path), nil)
	}
	return p, nil
}

// ListProfileNames returns the sorted profile names. The result is stable
// across calls until the store is mutated.
func (s *Store) ListProfileNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterProfile persists the profile, overwriting any existing section of
// the same name, and assigns a unique key if the profile does not carry one.
func (s *Store) RegisterProfile(p *Profile) error {
	if p == nil || p.Name == "" {
		return awserr.New(ErrCodeInvalidProfile, "profile must have a name", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.UniqueKey == "" {
		p.UniqueKey = uuid.NewString()
	}

	s.file.DeleteSection(p.Name)
	sec, err := s.file.NewSection(p.Name)
	if err != nil {
		return errors.Wrapf(err, "unable to create section for profile %q", p.Name)
	}
	writeSection(sec, p)

	s.profiles[p.Name] = p
	return s.persistLocked()
}

// Persist rewrites the backing file from the store's current state.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "unable to create directory for %s", s.path)
		}
	}
	if err := s.file.SaveTo(s.path); err != nil {
		return errors.Wrapf(err, "unable to persist shared credentials file %s", s.path)
	}
	return nil
}

func writeSection(sec *ini.Section, p *Profile) {
	o := p.Options
	set := func(name, value string) {
		if value != "" {
			sec.Key(name).SetValue(value)
		}
	}

	set("aws_access_key_id", o.AccessKeyID)
	set("aws_secret_access_key", o.SecretAccessKey)
	set("aws_session_token", o.SessionToken)
	set("role_arn", o.RoleARN)
	set("source_profile", o.SourceProfile)
	set("credential_source", o.CredentialSource)
	set("external_id", o.ExternalID)
	set("role_session_name", o.RoleSessionName)
	if o.DurationSeconds > 0 {
		set("duration_seconds", strconv.Itoa(o.DurationSeconds))
	}
	set("credential_process", o.CredentialProcess)
	set("sso_start_url", o.SSOStartURL)
	set("sso_region", o.SSORegion)
	set("sso_account_id", o.SSOAccountID)
	set("sso_role_name", o.SSORoleName)
	set("region", p.Region)

	for name, value := range p.Properties {
		sec.Key(name).SetValue(value)
	}
}

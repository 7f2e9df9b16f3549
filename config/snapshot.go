/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads and validates the YAML/JSON configuration entities
// spec §6 names (auditor, escaper, user, server, resolver, authority, audit
// policy) into a single, cross-referenced Snapshot, and exposes it behind
// an atomically-swapped Store so a reload never lets an in-flight task
// observe a half-applied configuration.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Snapshot is the fully parsed, validated configuration in effect at one
// point in time. It is never mutated after Load returns it; a reload
// produces a brand new Snapshot and swaps it into the Store atomically.
type Snapshot struct {
	Escapers      []EscaperEntity     `json:"escapers" yaml:"escapers"`
	Servers       []ServerEntity      `json:"servers" yaml:"servers"`
	Auditors      []AuditorEntity     `json:"auditors" yaml:"auditors"`
	Authorities   []AuthorityEntity   `json:"authorities" yaml:"authorities"`
	Resolvers     []ResolverEntity    `json:"resolvers" yaml:"resolvers"`
	Users         []UserEntity        `json:"users" yaml:"users"`
	AuditPolicies []AuditPolicyEntity `json:"audit_policies" yaml:"audit_policies"`
}

// validate runs struct-tag validation over every entity in s and checks
// the cross-entity references spec §6 requires (a server's escaper/
// auditor/authority names must resolve to something actually defined).
// Any failure fails the whole load: nothing is partially applied.
func (s *Snapshot) validate() error {
	v := validator.New()

	escaperNames := map[string]struct{}{}
	for _, e := range s.Escapers {
		if err := v.Struct(e); err != nil {
			return asValidationError(err)
		}
		escaperNames[e.Name] = struct{}{}
	}

	authorityNames := map[string]struct{}{}
	for _, a := range s.Authorities {
		if err := v.Struct(a); err != nil {
			return asValidationError(err)
		}
		authorityNames[a.Name] = struct{}{}
	}

	auditorNames := map[string]struct{}{}
	for _, a := range s.Auditors {
		if err := v.Struct(a); err != nil {
			return asValidationError(err)
		}
		if a.AuthorityName != "" {
			if _, ok := authorityNames[a.AuthorityName]; !ok {
				return ErrValidationFailed.Error(fmt.Errorf("auditor %q references unknown authority %q", a.Name, a.AuthorityName))
			}
		}
		auditorNames[a.Name] = struct{}{}
	}

	for _, r := range s.Resolvers {
		if err := v.Struct(r); err != nil {
			return asValidationError(err)
		}
	}

	for _, u := range s.Users {
		if err := v.Struct(u); err != nil {
			return asValidationError(err)
		}
	}

	for _, p := range s.AuditPolicies {
		if err := v.Struct(p); err != nil {
			return asValidationError(err)
		}
	}

	for _, srv := range s.Servers {
		if err := v.Struct(srv); err != nil {
			return asValidationError(err)
		}
		if _, ok := escaperNames[srv.EscaperName]; !ok {
			return ErrValidationFailed.Error(fmt.Errorf("server %q references unknown escaper %q", srv.Name, srv.EscaperName))
		}
		if srv.AuditorName != "" {
			if _, ok := auditorNames[srv.AuditorName]; !ok {
				return ErrValidationFailed.Error(fmt.Errorf("server %q references unknown auditor %q", srv.Name, srv.AuditorName))
			}
		}
		if srv.TLSAuthName != "" {
			if _, ok := authorityNames[srv.TLSAuthName]; !ok {
				return ErrValidationFailed.Error(fmt.Errorf("server %q references unknown authority %q", srv.Name, srv.TLSAuthName))
			}
		}
	}

	return nil
}

// asValidationError renders a validator.ValidationErrors slice into one
// CodeError carrying each offending field/constraint pair as a parent.
func asValidationError(err error) error {
	if ive, ok := err.(*validator.InvalidValidationError); ok {
		return ErrValidationFailed.Error(ive)
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		out := ErrValidationFailed.Error(nil)
		for _, fe := range ve {
			out.Add(fmt.Errorf("field %q failed constraint %q", fe.Namespace(), fe.ActualTag()))
		}
		return out
	}
	return ErrValidationFailed.Error(err)
}

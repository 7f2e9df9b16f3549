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

package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// EscaperEntity declaratively describes one configured escaper. Kind
// selects the variant (direct, proxyhttp, proxysocks5, proxysocks5s,
// diverttcp, routeresolved, routeselect); Params carries variant-specific
// fields as a loosely typed map so new variants never require a config
// schema migration.
type EscaperEntity struct {
	Name      string                 `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	Kind      string                 `mapstructure:"kind" json:"kind" yaml:"kind" validate:"required,oneof=direct proxyhttp proxysocks5 proxysocks5s diverttcp routeresolved routeselect"`
	DependsOn []string               `mapstructure:"depends_on" json:"depends_on" yaml:"depends_on"`
	Params    map[string]interface{} `mapstructure:"params" json:"params" yaml:"params"`
}

// DecodeParams decodes e.Params into out (a pointer to one of the
// escaper-variant config structs, e.g. a kind-specific options struct),
// matching keys by the same `mapstructure` tag every entity already
// carries. Unknown keys in Params are rejected: a typo'd option name
// fails loudly at load time rather than being silently ignored.
func (e EscaperEntity) DecodeParams(out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return ErrParseFailed.Error(err)
	}
	if err = dec.Decode(e.Params); err != nil {
		return ErrParseFailed.Error(err)
	}
	return nil
}

// ServerEntity describes one listening frontend.
type ServerEntity struct {
	Name        string        `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	Listen      string        `mapstructure:"listen" json:"listen" yaml:"listen" validate:"required,hostname_port"`
	Protocol    string        `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"required,oneof=http1 http2 smtp imap frontend"`
	EscaperName string        `mapstructure:"escaper" json:"escaper" yaml:"escaper" validate:"required"`
	AuditorName string        `mapstructure:"auditor" json:"auditor" yaml:"auditor"`
	TLSAuthName string        `mapstructure:"tls_authority" json:"tls_authority" yaml:"tls_authority"`
	AcceptTimeout time.Duration `mapstructure:"accept_timeout" json:"accept_timeout" yaml:"accept_timeout"`
}

// AuditorEntity describes one auditing profile: a cert-agent selection,
// an optional pair of ICAP services, and a DPI portmap fallback.
type AuditorEntity struct {
	Name            string `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	AuthorityName   string `mapstructure:"authority" json:"authority" yaml:"authority" validate:"required"`
	ReqmodService   string `mapstructure:"reqmod_service" json:"reqmod_service" yaml:"reqmod_service"`
	RespmodService  string `mapstructure:"respmod_service" json:"respmod_service" yaml:"respmod_service"`
	DefaultProtocol string `mapstructure:"default_protocol" json:"default_protocol" yaml:"default_protocol"`
}

// AuthorityEntity describes a certificate authority bundle the cert agent
// issues leaves from.
type AuthorityEntity struct {
	Name       string `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	CertFile   string `mapstructure:"cert_file" json:"cert_file" yaml:"cert_file" validate:"required"`
	KeyFile    string `mapstructure:"key_file" json:"key_file" yaml:"key_file" validate:"required"`
	OCSPStaple bool   `mapstructure:"ocsp_staple" json:"ocsp_staple" yaml:"ocsp_staple"`
}

// ResolverEntity describes a routing table entry consumed by the
// routeresolved/routeselect escaper variants.
type ResolverEntity struct {
	Name    string            `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	Routes  map[string]string `mapstructure:"routes" json:"routes" yaml:"routes"`
	Default string            `mapstructure:"default" json:"default" yaml:"default"`
}

// UserEntity describes one authenticating principal a frontend may
// challenge for, carrying the tenant it resolves to.
type UserEntity struct {
	Name     string `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	TenantID string `mapstructure:"tenant_id" json:"tenant_id" yaml:"tenant_id" validate:"required"`
	Disabled bool   `mapstructure:"disabled" json:"disabled" yaml:"disabled"`
}

// AuditPolicyEntity describes one tenant's intercept/adapt decision,
// the declarative counterpart to an audit.Policy function.
type AuditPolicyEntity struct {
	Name         string `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	TenantID     string `mapstructure:"tenant_id" json:"tenant_id" yaml:"tenant_id" validate:"required"`
	Intercept    bool   `mapstructure:"intercept" json:"intercept" yaml:"intercept"`
	AdaptReqmod  bool   `mapstructure:"adapt_reqmod" json:"adapt_reqmod" yaml:"adapt_reqmod"`
	AdaptRespmod bool   `mapstructure:"adapt_respmod" json:"adapt_respmod" yaml:"adapt_respmod"`
}

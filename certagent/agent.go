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

// Package certagent is an in-memory stand-in for the external certificate
// authority a production deployment would call out to: it holds one
// self-signed root generated at startup and mints a fresh leaf (plus a
// stapled OCSP "good" response) for every SNI tlsintercept asks it about.
// It implements tlsintercept.CertAgent, nothing more — swapping it for a
// real PKI client is a matter of satisfying that interface.
package certagent

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/nabbar/proxycore/tlsintercept"
)

// Agent is the in-memory CA. The zero value is not usable; build one with
// New.
type Agent struct {
	mu sync.Mutex

	caCert *x509.Certificate
	caDER  []byte
	caKey  *ecdsa.PrivateKey

	leafValidity time.Duration
	nextSerial   int64
}

// New generates a fresh in-memory root CA and returns an Agent that mints
// leaves under it. leafValidity bounds how long each minted leaf (and its
// OCSP response) is valid; a non-positive value defaults to one hour,
// appropriate for a leaf that only needs to outlive a single intercepted
// connection.
func New(leafValidity time.Duration) (*Agent, error) {
	if leafValidity <= 0 {
		leafValidity = time.Hour
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "proxycore intercepting CA", Organization: []string{"proxycore"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	return &Agent{
		caCert:       cert,
		caDER:        der,
		caKey:        key,
		leafValidity: leafValidity,
		nextSerial:   2,
	}, nil
}

// RootCertificate returns the root CA's DER bytes, for a test or an
// operator-facing endpoint that needs to hand the intercepting root to a
// client to trust.
func (a *Agent) RootCertificate() []byte {
	return a.caDER
}

// Issue mints a fresh leaf for req.SNI and staples a "good" OCSP response
// to it, satisfying tlsintercept.CertAgent.
func (a *Agent) Issue(_ context.Context, req tlsintercept.IssueRequest) (tlsintercept.Bundle, error) {
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tlsintercept.Bundle{}, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	serial := a.allocSerial()

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: req.SNI},
		DNSNames:     []string{req.SNI},
		NotBefore:    now.Add(-5 * time.Minute),
		NotAfter:     now.Add(a.leafValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.caCert, &leafKey.PublicKey, a.caKey)
	if err != nil {
		return tlsintercept.Bundle{}, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tlsintercept.Bundle{}, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	resp, err := ocsp.CreateResponse(a.caCert, a.caCert, ocsp.Response{
		Status:       ocsp.Good,
		SerialNumber: serial,
		ThisUpdate:   now,
		NextUpdate:   now.Add(a.leafValidity),
	}, a.caKey)
	if err != nil {
		return tlsintercept.Bundle{}, tlsintercept.ErrCertAgentFailed.Error(err)
	}

	return tlsintercept.Bundle{
		Leaf: tlsCertificate(der, a.caDER, leafKey, leaf),
		OCSP: resp,
	}, nil
}

func (a *Agent) allocSerial() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.nextSerial
	a.nextSerial++
	return big.NewInt(s)
}

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

package tlsintercept_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/nabbar/proxycore/tlsintercept"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, cn string) (tls.Certificate, *x509.Certificate) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     []string{cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}, cert
}

type singleCertAgent struct {
	bundle tlsintercept.Bundle
}

func (a *singleCertAgent) Issue(_ context.Context, _ tlsintercept.IssueRequest) (tlsintercept.Bundle, error) {
	return a.bundle, nil
}

func TestInterceptCompletesBothHandshakes(t *testing.T) {
	leafCert, _ := selfSignedCert(t, "intercept.test")
	upstreamCert, upstreamX509 := selfSignedCert(t, "intercept.test")

	upstreamPool := x509.NewCertPool()
	upstreamPool.AddCert(upstreamX509)

	cfg := tlsintercept.Config{
		Agent:           tlsintercept.NewAgentCache(&singleCertAgent{bundle: tlsintercept.Bundle{Leaf: leafCert}}, 0),
		UpstreamRootCAs: upstreamPool,
	}

	clientSide, serverSide := net.Pipe()
	upstreamClientSide, upstreamServerSide := net.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientErr := make(chan error, 1)
	go func() {
		c := tls.Client(clientSide, &tls.Config{InsecureSkipVerify: true})
		clientErr <- c.HandshakeContext(ctx)
	}()

	upstreamErr := make(chan error, 1)
	go func() {
		s := tls.Server(upstreamServerSide, &tls.Config{Certificates: []tls.Certificate{upstreamCert}})
		upstreamErr <- s.HandshakeContext(ctx)
	}()

	dial := func(_ context.Context, _ string, _ []string) (net.Conn, error) {
		return upstreamClientSide, nil
	}

	pair, err := tlsintercept.Intercept(ctx, cfg, serverSide, "192.0.2.1:51000", "intercept.test", nil, dial)
	require.NoError(t, err)
	require.NotNil(t, pair.Client)
	require.NotNil(t, pair.Upstream)

	require.NoError(t, <-clientErr)
	require.NoError(t, <-upstreamErr)
}

func TestInterceptRejectsDisallowedALPN(t *testing.T) {
	leafCert, _ := selfSignedCert(t, "intercept.test")
	cfg := tlsintercept.Config{
		Agent:       tlsintercept.NewAgentCache(&singleCertAgent{bundle: tlsintercept.Bundle{Leaf: leafCert}}, 0),
		AllowedALPN: []string{"h2"},
	}

	_, serverSide := net.Pipe()
	dial := func(_ context.Context, _ string, _ []string) (net.Conn, error) {
		t.Fatal("dial should not be reached when ALPN is rejected")
		return nil, nil
	}

	_, err := tlsintercept.Intercept(context.Background(), cfg, serverSide, "192.0.2.1:51000", "intercept.test", []string{"smtp"}, dial)
	require.Error(t, err)
}

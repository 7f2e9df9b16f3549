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

package imap

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"

	"github.com/nabbar/proxycore/ioext"
	"github.com/nabbar/proxycore/serve"
)

// session carries one client<->upstream relay's mutable state: the two
// textproto readers (swapped out in place on STARTTLS) and whether the
// connection has already gone through a STARTTLS upgrade.
type session struct {
	cfg Config

	client   net.Conn
	upstream net.Conn

	clientR *textproto.Reader
	clientW *bufio.Writer

	upstreamR *textproto.Reader
	upstreamW *bufio.Writer

	fromSTARTTLS bool
	quit         bool
}

func newSession(cfg Config, client, upstream net.Conn) *session {
	s := &session{cfg: cfg}
	s.setClient(client)
	s.setUpstream(upstream)
	return s
}

func (s *session) setClient(c net.Conn) {
	s.client = c
	s.clientR = textproto.NewReader(bufio.NewReader(c))
	s.clientW = bufio.NewWriter(c)
}

func (s *session) setUpstream(c net.Conn) {
	s.upstream = c
	s.upstreamR = textproto.NewReader(bufio.NewReader(c))
	s.upstreamW = bufio.NewWriter(c)
}

func (s *session) run(ctx context.Context) error {
	if err := s.relayGreeting(); err != nil {
		return err
	}

	for !s.quit {
		if err := s.commandLoop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// relayGreeting relays the upstream's untagged "* OK"/"* PREAUTH"/"* BYE"
// greeting line, filtering any inline capability announcement.
func (s *session) relayGreeting() error {
	line, err := s.upstreamR.ReadLine()
	if err != nil {
		return ErrGreetingRelayFailed.Error(err)
	}
	if err := s.writeClientLine(s.filterCapabilityLine(line)); err != nil {
		return ErrGreetingRelayFailed.Error(err)
	}
	return nil
}

// commandLoop reads one client command (assembling any literals it
// carries), relays it upstream, relays the upstream's response back, and
// handles STARTTLS in place.
func (s *session) commandLoop(ctx context.Context) error {
	line, err := s.clientR.ReadLine()
	if err != nil {
		return ErrCommandRelayFailed.Error(err)
	}

	tag := parseTag(line)
	verb := commandVerb(line)

	if verb == "IDLE" {
		if !s.cfg.AllowIdle {
			if err := s.writeClientLine(tag + " BAD IDLE not permitted"); err != nil {
				return ErrResponseRelayFailed.Error(err)
			}
			return nil
		}
		if err := s.writeUpstreamLine(line); err != nil {
			return ErrCommandRelayFailed.Error(err)
		}
		return s.handleIdle(ctx, tag)
	}

	if err := s.relayClientCommand(ctx, line); err != nil {
		return err
	}

	final, err := s.relayUpstreamResponse(ctx, tag)
	if err != nil {
		return err
	}

	if verb == "LOGOUT" {
		s.quit = true
		return nil
	}

	if verb == "STARTTLS" && strings.Contains(strings.ToUpper(final), " OK") {
		return s.doStartTLS(ctx)
	}

	return nil
}

func commandVerb(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return strings.ToUpper(fields[1])
}

// relayClientCommand forwards line to the upstream, then assembles and
// forwards any literal segments the command carries -- reading a
// continuation reply off the upstream between a synchronizing literal's
// announcement and its bytes, per RFC 3501 section 7.5.
func (s *session) relayClientCommand(ctx context.Context, line string) error {
	for {
		if err := s.writeUpstreamLine(line); err != nil {
			return ErrCommandRelayFailed.Error(err)
		}

		size, nonSync, hasLit := parseLiteralSuffix(line)
		if !hasLit {
			return nil
		}
		if s.cfg.MaxLiteralSize > 0 && size > s.cfg.MaxLiteralSize {
			return ErrLiteralTooLarge.Error(errors.New("literal exceeds configured limit"))
		}

		if !nonSync {
			cont, err := s.upstreamR.ReadLine()
			if err != nil {
				return ErrResponseRelayFailed.Error(err)
			}
			if err := s.writeClientLine(cont); err != nil {
				return ErrResponseRelayFailed.Error(err)
			}
			if !strings.HasPrefix(cont, "+") {
				return nil
			}
		}

		if err := s.transferLiteral(ctx, size, s.client, s.clientR.R, s.upstreamW); err != nil {
			return err
		}

		rest, err := s.clientR.ReadLine()
		if err != nil {
			return ErrCommandRelayFailed.Error(err)
		}
		line = rest
	}
}

// relayUpstreamResponse relays every untagged line the upstream sends
// (filtering inline capability announcements and forwarding embedded
// response literals) until it sees the tagged completion line matching
// tag, which it returns for the caller to inspect (e.g. STARTTLS's OK/NO
// status).
func (s *session) relayUpstreamResponse(ctx context.Context, tag string) (string, error) {
	for {
		line, err := s.upstreamR.ReadLine()
		if err != nil {
			return "", ErrResponseRelayFailed.Error(err)
		}

		if err := s.writeClientLine(s.filterCapabilityLine(line)); err != nil {
			return "", ErrResponseRelayFailed.Error(err)
		}

		if size, _, hasLit := parseLiteralSuffix(line); hasLit {
			if err := s.transferLiteral(ctx, size, s.upstream, s.upstreamR.R, s.clientW); err != nil {
				return "", err
			}
			continue
		}

		if parseTag(line) == tag {
			return line, nil
		}
	}
}

// transferLiteral relays exactly size raw bytes from src (the reader side
// of conn, used only to decide whether idle-deadline policing applies) to
// dst.
func (s *session) transferLiteral(ctx context.Context, size int64, conn net.Conn, src *bufio.Reader, dst *bufio.Writer) error {
	sc := ioext.New(io.LimitReader(src, size), dst)

	cfg := s.cfg.Idle
	cfg.Conn = conn
	if err := serve.RunTransfer(ctx, sc, cfg); err != nil {
		return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrLiteralTransferFailed)
	}
	return dst.Flush()
}

// doStartTLS upgrades the upstream connection first and the client
// connection second, both in place, mirroring the SMTP engine's sequencing.
func (s *session) doStartTLS(ctx context.Context) error {
	upCfg := s.cfg.UpstreamTLSConfig
	if upCfg == nil {
		upCfg = &tls.Config{}
	}
	upTLS := tls.Client(s.upstream, upCfg)
	if err := upTLS.HandshakeContext(ctx); err != nil {
		return ErrStartTLSFailed.Error(err)
	}
	s.setUpstream(upTLS)

	if s.cfg.ClientTLSConfig == nil {
		return ErrStartTLSFailed.Error(errors.New("no client TLS config configured for STARTTLS"))
	}
	cltTLS := tls.Server(s.client, s.cfg.ClientTLSConfig)
	if err := cltTLS.HandshakeContext(ctx); err != nil {
		return ErrStartTLSFailed.Error(err)
	}
	s.setClient(cltTLS)

	s.fromSTARTTLS = true
	return nil
}

// handleIdle relays the immediate "+" continuation reply to IDLE, then --
// if the upstream accepted -- reads the client's "DONE" line while a
// background goroutine relays the upstream's untagged pushes, and waits
// for that goroutine to see IDLE's own tagged completion line after DONE
// is forwarded. Only the goroutine touches upstreamR past the
// continuation line, so there is no concurrent read on it.
func (s *session) handleIdle(ctx context.Context, tag string) error {
	cont, err := s.upstreamR.ReadLine()
	if err != nil {
		return ErrResponseRelayFailed.Error(err)
	}
	if err := s.writeClientLine(cont); err != nil {
		return ErrResponseRelayFailed.Error(err)
	}
	if !strings.HasPrefix(cont, "+") {
		// the upstream declined IDLE with a tagged response; nothing
		// further to relay, and the client won't send DONE.
		return nil
	}

	done := make(chan error, 1)
	go func() {
		for {
			line, err := s.upstreamR.ReadLine()
			if err != nil {
				done <- ErrResponseRelayFailed.Error(err)
				return
			}
			if err := s.writeClientLine(line); err != nil {
				done <- ErrResponseRelayFailed.Error(err)
				return
			}
			if t := parseTag(line); t == tag {
				done <- nil
				return
			}
		}
	}()

	line, err := s.clientR.ReadLine()
	if err != nil {
		return ErrCommandRelayFailed.Error(err)
	}
	if err := s.writeUpstreamLine(line); err != nil {
		return ErrCommandRelayFailed.Error(err)
	}

	return <-done
}

func (s *session) writeClientLine(line string) error {
	if _, err := s.clientW.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return s.clientW.Flush()
}

func (s *session) writeUpstreamLine(line string) error {
	if _, err := s.upstreamW.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return s.upstreamW.Flush()
}

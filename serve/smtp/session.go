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

package smtp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/ioext"
	"github.com/nabbar/proxycore/serve"
)

// session carries one client<->upstream relay's mutable state: the two
// textproto readers (swapped out in place on STARTTLS), the transaction's
// DATA/BDAT exclusivity flag, and which extensions the upstream has
// advertised so far.
type session struct {
	cfg Config

	client   net.Conn
	upstream net.Conn

	clientR *textproto.Reader
	clientW *bufio.Writer

	upstreamR *textproto.Reader
	upstreamW *bufio.Writer

	fromSTARTTLS      bool
	startTLSRequested bool
	quit              bool

	bdatUsed bool

	serverSTARTTLS bool
	serverChunking bool
	serverBurl     bool
	serverODMR     bool
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

	for {
		if err := s.initiation(ctx); err != nil {
			return err
		}
		if s.quit {
			return nil
		}
		if s.startTLSRequested {
			s.startTLSRequested = false
			continue
		}
		if err := s.transaction(ctx); err != nil {
			return err
		}
		if s.quit {
			return nil
		}
	}
}

func (s *session) relayGreeting() error {
	_, err := s.relayReply()
	if err != nil {
		var ce errs.Error
		if errors.As(err, &ce) && ce.HasCode(ErrUpstreamAppUnavailable) {
			return err
		}
		return ErrGreetingRelayFailed.Error(err)
	}
	return nil
}

// initiation reads client commands until EHLO/HELO (capability exchange,
// ready for a transaction), STARTTLS (upgrade both legs in place), or
// QUIT; anything else draws a bare "bad sequence" reply without bothering
// the upstream, since none of those commands are valid before EHLO/HELO.
func (s *session) initiation(ctx context.Context) error {
	for {
		line, err := s.clientR.ReadLine()
		if err != nil {
			return ErrCommandRelayFailed.Error(err)
		}

		switch parseVerb(line) {
		case "EHLO", "HELO":
			if err := s.writeUpstreamLine(line); err != nil {
				return ErrCommandRelayFailed.Error(err)
			}
			if err := s.relayEhloReply(); err != nil {
				return err
			}
			return nil

		case "STARTTLS":
			if err := s.doStartTLS(ctx, line); err != nil {
				return err
			}
			s.startTLSRequested = true
			return nil

		case "QUIT":
			if err := s.relayCommand(line); err != nil {
				return err
			}
			s.quit = true
			return nil

		default:
			if err := s.writeClientLine("503 5.5.1 Bad sequence of commands"); err != nil {
				return ErrResponseRelayFailed.Error(err)
			}
		}
	}
}

// transaction runs one MAIL FROM -> RCPT TO* -> DATA|BDAT* sequence,
// returning once the body has been relayed (DATA, or a BDAT marked LAST)
// or the client sends RSET/QUIT.
func (s *session) transaction(ctx context.Context) error {
	for {
		line, err := s.clientR.ReadLine()
		if err != nil {
			return ErrCommandRelayFailed.Error(err)
		}

		switch parseVerb(line) {
		case "MAIL", "RCPT":
			if err := s.relayCommand(line); err != nil {
				return err
			}

		case "DATA":
			if s.bdatUsed {
				if err := s.writeClientLine("503 5.5.1 Bad sequence of commands"); err != nil {
					return ErrResponseRelayFailed.Error(err)
				}
				continue
			}
			if err := s.writeUpstreamLine(line); err != nil {
				return ErrCommandRelayFailed.Error(err)
			}
			code, err := s.relayReply()
			if err != nil {
				return err
			}
			if code != 354 {
				continue
			}
			if err := s.relayData(ctx); err != nil {
				return err
			}
			if _, err := s.relayReply(); err != nil {
				return err
			}
			return nil

		case "BDAT":
			if !s.cfg.AllowDataChunking {
				if err := s.writeClientLine("502 5.5.1 Command not implemented"); err != nil {
					return ErrResponseRelayFailed.Error(err)
				}
				continue
			}
			size, last, perr := parseBdatArgs(line)
			if perr != nil {
				if err := s.writeClientLine("501 5.5.4 Syntax error in parameters"); err != nil {
					return ErrResponseRelayFailed.Error(err)
				}
				continue
			}
			if err := s.writeUpstreamLine(line); err != nil {
				return ErrCommandRelayFailed.Error(err)
			}
			if err := s.relayBdat(ctx, size); err != nil {
				return err
			}
			if _, err := s.relayReply(); err != nil {
				return err
			}
			s.bdatUsed = true
			if last {
				return nil
			}

		case "BURL":
			if !s.cfg.AllowBurlData {
				if err := s.writeClientLine("502 5.5.1 Command not implemented"); err != nil {
					return ErrResponseRelayFailed.Error(err)
				}
				continue
			}
			if err := s.relayCommand(line); err != nil {
				return err
			}

		case "RSET":
			if err := s.relayCommand(line); err != nil {
				return err
			}
			s.bdatUsed = false
			return nil

		case "NOOP":
			if err := s.relayCommand(line); err != nil {
				return err
			}

		case "QUIT":
			if err := s.relayCommand(line); err != nil {
				return err
			}
			s.quit = true
			return nil

		default:
			if err := s.writeClientLine("503 5.5.1 Bad sequence of commands"); err != nil {
				return ErrResponseRelayFailed.Error(err)
			}
		}
	}
}

// relayCommand forwards line verbatim to the upstream and relays its
// reply back to the client.
func (s *session) relayCommand(line string) error {
	if err := s.writeUpstreamLine(line); err != nil {
		return ErrCommandRelayFailed.Error(err)
	}
	_, err := s.relayReply()
	return err
}

// relayReply reassembles one multi-line upstream reply ("NNN-..."
// continuations terminated by "NNN ...") and relays every line to the
// client as it arrives, returning the final reply code. A 421 ends the
// session with ErrUpstreamAppUnavailable regardless of which command
// triggered it.
func (s *session) relayReply() (int, error) {
	for {
		line, err := s.upstreamR.ReadLine()
		if err != nil {
			return 0, ErrResponseRelayFailed.Error(err)
		}
		if err := s.writeClientLine(line); err != nil {
			return 0, ErrResponseRelayFailed.Error(err)
		}
		if len(line) < 4 || line[3] != '-' {
			code, _ := strconv.Atoi(safeCode(line))
			if code == 421 {
				return code, ErrUpstreamAppUnavailable.Error(errors.New(line))
			}
			return code, nil
		}
	}
}

// relayEhloReply buffers the full EHLO/HELO capability reply (always a
// handful of short lines, never a streamed body), drops any capability
// line allowCapability rejects, and rewrites the remaining lines'
// continuation markers so the client still sees a well-formed reply.
func (s *session) relayEhloReply() error {
	type line struct {
		code string
		text string
	}
	var lines []line
	for {
		raw, err := s.upstreamR.ReadLine()
		if err != nil {
			return ErrResponseRelayFailed.Error(err)
		}
		if len(raw) < 4 {
			lines = append(lines, line{text: raw})
			break
		}
		l := line{code: raw[:3], text: raw[4:]}
		lines = append(lines, l)
		if raw[3] != '-' {
			break
		}
	}
	if len(lines) == 0 {
		return ErrResponseRelayFailed.Error(io.ErrUnexpectedEOF)
	}

	code, _ := strconv.Atoi(lines[0].code)

	kept := lines[:1:1]
	for _, l := range lines[1:] {
		kw := l.text
		if sp := strings.IndexByte(kw, ' '); sp >= 0 {
			kw = kw[:sp]
		}
		if s.allowCapability(strings.ToUpper(kw)) {
			kept = append(kept, l)
		}
	}

	for i, l := range kept {
		sep := byte('-')
		if i == len(kept)-1 {
			sep = ' '
		}
		if err := s.writeClientLine(l.code + string(sep) + l.text); err != nil {
			return ErrResponseRelayFailed.Error(err)
		}
	}

	if code == 421 {
		return ErrUpstreamAppUnavailable.Error(errors.New(lines[0].text))
	}
	return nil
}

// relayData drives the dot-unstuffed DATA body from the client straight
// into a dot-stuffing writer on the upstream connection, under the same
// idle/blocked-user/server-quit policy every body transfer in this module
// shares.
func (s *session) relayData(ctx context.Context) error {
	dst := textproto.NewWriter(s.upstreamW).DotWriter()
	sc := ioext.New(s.clientR.DotReader(), dst)

	cfg := s.cfg.Idle
	cfg.Conn = s.client
	if err := serve.RunTransfer(ctx, sc, cfg); err != nil {
		_ = dst.Close()
		return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrDataTransferFailed)
	}
	if err := dst.Close(); err != nil {
		return ErrDataTransferFailed.Error(err)
	}
	return nil
}

// relayBdat relays exactly size raw bytes (no dot-unstuffing; BDAT framing
// is length-prefixed) from the client to the upstream.
func (s *session) relayBdat(ctx context.Context, size int64) error {
	sc := ioext.New(io.LimitReader(s.clientR.R, size), s.upstreamW)

	cfg := s.cfg.Idle
	cfg.Conn = s.client
	if err := serve.RunTransfer(ctx, sc, cfg); err != nil {
		return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrBdatTransferFailed)
	}
	return s.upstreamW.Flush()
}

// doStartTLS relays the client's STARTTLS command and the upstream's
// reply, then -- if the upstream agreed -- upgrades the upstream
// connection first and the client connection second, both in place, so
// the session's subsequent initiation() re-read starts from a TLS stream
// on each side without either party needing a fresh TCP connection.
func (s *session) doStartTLS(ctx context.Context, line string) error {
	if err := s.writeUpstreamLine(line); err != nil {
		return ErrCommandRelayFailed.Error(err)
	}
	code, err := s.relayReply()
	if err != nil {
		return err
	}
	if code != 220 {
		return nil
	}

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

func safeCode(line string) string {
	if len(line) < 3 {
		return "0"
	}
	return line[:3]
}

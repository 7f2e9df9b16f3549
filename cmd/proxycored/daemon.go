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

package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nabbar/proxycore/config"
	"github.com/nabbar/proxycore/logger"
	"github.com/spf13/cobra"
)

// serveDaemon loads and validates the configuration at f.configPath, opens
// the control-channel socket, and blocks until SIGINT/SIGTERM or a watch-
// triggered reload failure ends the run.
func serveDaemon(cmd *cobra.Command, f *flags) error {
	log := logger.New()
	if f.verbose {
		log = log.WithFields(logger.Fields{"group": f.group})
	}

	store, err := config.NewStore(f.configPath)
	if err != nil {
		return configErr(err)
	}
	log.Info("configuration loaded", logger.Fields{
		"servers":  len(store.Current().Servers),
		"escapers": len(store.Current().Escapers),
	})

	watcher, err := config.Watch(store)
	if err != nil {
		return configErr(err)
	}
	defer watcher.Close()

	socketPath := f.controlSocket
	if socketPath == "" {
		socketPath = filepath.Join("/run/proxycored", f.group+".sock")
	}

	ctl, err := newControlChannel(socketPath, store, log)
	if err != nil {
		return runtimeErr(err)
	}
	defer ctl.Close()

	go ctl.serve()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("received shutdown signal", logger.Fields{"signal": s.String()})
		return nil
	case err := <-watcher.Errors():
		log.Error(err, "configuration reload failed")
		return runtimeErr(err)
	}
}

// controlChannel is a minimal unix-socket status endpoint: one line in
// ("status"), one line out (a summary of the Snapshot currently in
// effect). The wire protocol deliberately stays line-oriented and
// single-command so a human can poke it with socat/nc during an incident.
type controlChannel struct {
	listener net.Listener
	store    *config.Store
	log      logger.Logger
}

func newControlChannel(path string, store *config.Store, log logger.Logger) (*controlChannel, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &controlChannel{listener: ln, store: store, log: log}, nil
}

func (c *controlChannel) serve() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		go c.handle(conn)
	}
}

func (c *controlChannel) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	switch scanner.Text() {
	case "status":
		snap := c.store.Current()
		fmt.Fprintf(conn, "ok servers=%d escapers=%d auditors=%d\n",
			len(snap.Servers), len(snap.Escapers), len(snap.Auditors))
	default:
		fmt.Fprintln(conn, "error unknown command")
	}
}

func (c *controlChannel) Close() error {
	return c.listener.Close()
}

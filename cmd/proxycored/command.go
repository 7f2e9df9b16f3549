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
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

// exitCodeErr carries one of this command's promised exit codes alongside
// the error cobra would otherwise just print and turn into a bare 1.
type exitCodeErr struct {
	code int
	err  error
}

func (e *exitCodeErr) Error() string { return e.err.Error() }
func (e *exitCodeErr) Unwrap() error { return e.err }

func asExitCode(err error) (int, bool) {
	if e, ok := err.(*exitCodeErr); ok {
		return e.code, true
	}
	return 0, false
}

func usageErr(format string, args ...interface{}) error {
	return &exitCodeErr{code: exitUsageError, err: fmt.Errorf(format, args...)}
}

func configErr(err error) error {
	return &exitCodeErr{code: exitConfigError, err: err}
}

func runtimeErr(err error) error {
	return &exitCodeErr{code: exitRuntimeFault, err: err}
}

type flags struct {
	configPath    string
	group         string
	controlSocket string
	verbose       bool
	showVersion   bool
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "proxycored",
		Short:         "Intercepting multi-protocol proxy core daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				cmd.Println("proxycored " + version)
				return nil
			}
			if f.configPath == "" {
				return usageErr("--config is required")
			}
			return serveDaemon(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to the YAML/JSON configuration file")
	cmd.Flags().StringVarP(&f.group, "group", "g", "default", "deployment group name, used to namespace the control channel")
	cmd.Flags().StringVar(&f.controlSocket, "control-channel", "", "unix socket path for runtime control; defaults to /run/proxycored/<group>.sock")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "tag every log entry with the group name (the log level stays at info)")
	cmd.Flags().BoolVar(&f.showVersion, "version", false, "print the daemon version and exit")

	return cmd
}

// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package execx runs external build commands.
package execx

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Cmd describes one command invocation.
type Cmd struct {
	Dir  string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	// Privileged commands write into root-owned trees.
	Privileged bool
}

func (c Cmd) String() string {
	return strings.Join(c.Args, " ")
}

// Runner executes commands, returning their combined output.
type Runner interface {
	Run(ctx context.Context, c Cmd) (string, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct {
	// Sudo prefixes privileged commands with "sudo -E".
	Sudo bool
	// Log receives command output as it is produced. Defaults to the standard logger.
	Log io.Writer
}

var _ Runner = &ExecRunner{}

// Run executes c and returns its combined stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (string, error) {
	if len(c.Args) == 0 {
		return "", errors.New("empty command")
	}
	args := c.Args
	if c.Privileged && r.Sudo {
		args = append([]string{"sudo", "-E"}, args...)
	}
	output := new(bytes.Buffer)
	w := r.Log
	if w == nil {
		w = log.Default().Writer()
	}
	outAndLog := io.MultiWriter(output, w)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = outAndLog
	cmd.Stderr = outAndLog
	cmd.Env = append(os.Environ(), c.Env...)
	if path, ok := LookupEnv(c.Env, "PATH"); ok {
		// exec resolves the binary against the parent's PATH unless told otherwise.
		if p, err := LookPath(args[0], path); err == nil {
			cmd.Path = p
			cmd.Err = nil
		}
	}
	log.Printf("Executing [dir=%s]: %s\n", c.Dir, strings.Join(args, " "))
	err := cmd.Run()
	if err != nil {
		return output.String(), errors.Wrapf(err, "running %q", c.String())
	}
	return output.String(), nil
}

// LookupEnv returns the last value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	var val string
	var found bool
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			val, found = v, true
		}
	}
	return val, found
}

// LookPath searches the colon-separated path list for an executable named file.
func LookPath(file, path string) (string, error) {
	if strings.Contains(file, "/") {
		return file, nil
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, file)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() && fi.Mode()&0111 != 0 {
			return p, nil
		}
	}
	return "", errors.Wrapf(exec.ErrNotFound, "%s", file)
}

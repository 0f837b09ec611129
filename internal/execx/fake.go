// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package execx

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner records commands instead of running them.
type FakeRunner struct {
	mu   sync.Mutex
	Cmds []Cmd
	// Respond, when set, supplies the output and error for each command.
	Respond func(Cmd) (string, error)
}

var _ Runner = &FakeRunner{}

func (f *FakeRunner) Run(ctx context.Context, c Cmd) (string, error) {
	f.mu.Lock()
	f.Cmds = append(f.Cmds, c)
	f.mu.Unlock()
	if f.Respond != nil {
		return f.Respond(c)
	}
	return "", nil
}

// Commands renders every recorded command as "dir$ args".
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Cmds {
		s := c.Dir + "$ " + strings.Join(c.Args, " ")
		if c.Privileged {
			s = "[root] " + s
		}
		out = append(out, s)
	}
	return out
}

// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Field is a named value in the order it should be written.
type Field struct {
	Name  string
	Value Value
}

// Simple returns a single-line field.
func Simple(name, value string) Field {
	return Field{Name: name, Value: Value{Lines: []string{value}}}
}

// Multiline returns a field whose first line is synopsis and whose remaining
// lines are written as continuation lines. Empty lines become " .".
func Multiline(name, synopsis string, body ...string) Field {
	lines := []string{synopsis}
	for _, l := range body {
		if strings.TrimSpace(l) == "" {
			l = "."
		}
		lines = append(lines, l)
	}
	return Field{Name: name, Value: Value{Lines: lines}}
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "-") {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r > '~' || r == ':' {
			return false
		}
	}
	return true
}

// Write renders the stanza formed by fields. Fields with no lines or an empty
// first line and no continuation are omitted.
func Write(w io.Writer, fields []Field) error {
	bw := bufio.NewWriter(w)
	seen := make(map[string]bool)
	for _, f := range fields {
		if !validName(f.Name) {
			return errors.Errorf("invalid field name: %q", f.Name)
		}
		if seen[f.Name] {
			return errors.Errorf("duplicate field: %s", f.Name)
		}
		seen[f.Name] = true
		lines := f.Value.Lines
		if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
			continue
		}
		for i, l := range lines {
			if strings.ContainsAny(l, "\n\r") {
				return errors.Errorf("field %s: line %d contains a newline", f.Name, i)
			}
			if i > 0 && strings.TrimSpace(l) == "" {
				return errors.Errorf("field %s: empty continuation line %d", f.Name, i)
			}
		}
		if lines[0] == "" {
			bw.WriteString(f.Name + ":\n")
		} else {
			bw.WriteString(f.Name + ": " + lines[0] + "\n")
		}
		for _, l := range lines[1:] {
			bw.WriteString(" " + l + "\n")
		}
	}
	return bw.Flush()
}

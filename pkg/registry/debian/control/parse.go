// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package control reads and writes deb822 control files.
// See https://www.debian.org/doc/debian-policy/ch-controlfields.html
package control

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Value is the raw text of a field. Lines[0] is the text after the colon and
// each continuation line keeps its indentation minus the leading marker.
type Value struct {
	Lines []string
}

// AsSimple returns a single-line value.
func (v Value) AsSimple() (string, error) {
	if len(v.Lines) != 1 {
		return "", errors.Errorf("expected simple field, got %d lines", len(v.Lines))
	}
	return v.Lines[0], nil
}

// AsFolded joins the lines of a folded field with single spaces.
func (v Value) AsFolded() string {
	parts := make([]string, 0, len(v.Lines))
	for _, l := range v.Lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// AsMultiline returns the value with its line structure intact.
func (v Value) AsMultiline() string {
	return strings.Join(v.Lines, "\n")
}

// AsList splits a folded field on commas, dropping empty entries.
func (v Value) AsList() []string {
	out := []string{}
	for _, item := range strings.Split(v.AsFolded(), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Stanza is one paragraph of fields in file order.
type Stanza struct {
	Names  []string
	Fields map[string]Value
}

// Get looks up a field. Field names compare case-insensitively.
func (s Stanza) Get(name string) (Value, bool) {
	if v, ok := s.Fields[name]; ok {
		return v, true
	}
	for _, n := range s.Names {
		if strings.EqualFold(n, name) {
			return s.Fields[n], true
		}
	}
	return Value{}, false
}

func (s *Stanza) lookup(name string) (string, bool) {
	for _, n := range s.Names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// File is a parsed control file.
type File struct {
	Stanzas []Stanza
}

// Get returns the named field from the first stanza that has it.
func (f *File) Get(name string) (Value, bool) {
	for _, s := range f.Stanzas {
		if v, ok := s.Get(name); ok {
			return v, true
		}
	}
	return Value{}, false
}

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("control: line %d: %s", e.Line, e.Msg)
}

// Parse reads the stanzas of a control file. Comment lines are ignored.
func Parse(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	f := &File{}
	var cur *Stanza
	var last string
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "#"):
		case strings.TrimSpace(line) == "":
			if cur != nil {
				f.Stanzas = append(f.Stanzas, *cur)
				cur, last = nil, ""
			}
		case line[0] == ' ' || line[0] == '\t':
			if cur == nil || last == "" {
				return nil, &SyntaxError{Line: n, Msg: "continuation line outside a field"}
			}
			v := cur.Fields[last]
			v.Lines = append(v.Lines, line[1:])
			cur.Fields[last] = v
		default:
			name, value, ok := strings.Cut(line, ":")
			if !ok || name == "" || strings.ContainsAny(name, " \t") {
				return nil, &SyntaxError{Line: n, Msg: fmt.Sprintf("expected field, got %q", line)}
			}
			if cur == nil {
				cur = &Stanza{Fields: map[string]Value{}}
			}
			if prev, dup := cur.lookup(name); dup {
				return nil, &SyntaxError{Line: n, Msg: "duplicate field " + prev}
			}
			cur.Names = append(cur.Names, name)
			cur.Fields[name] = Value{Lines: []string{strings.TrimSpace(value)}}
			last = name
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading control file")
	}
	if cur != nil {
		f.Stanzas = append(f.Stanzas, *cur)
	}
	if len(f.Stanzas) == 0 {
		return nil, errors.New("control: no stanzas")
	}
	return f, nil
}

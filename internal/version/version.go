// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package version parses release tags into ordered, comparable versions.
//
// Tags are expected to look like semantic versions but are parsed leniently:
// any number of dot-separated numeric components is accepted and a trailing
// "-pre" and/or "+build" suffix is split off the last component.
package version

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Version is a parsed release tag.
type Version struct {
	// Components are the numeric, dot-separated fields (major, minor, patch, ...).
	Components []int
	// Prerelease is the text following the first '-' of the suffix, if any.
	Prerelease string
	// Build is the text following the '+' of the suffix, if any.
	Build string
	// Raw is the unmodified tag string, including any prefix.
	Raw string
}

// FormatError is returned when a tag cannot be parsed as a version.
type FormatError struct {
	Raw    string
	Prefix string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Prefix != "" {
		return "invalid version " + strconv.Quote(e.Raw) + " (prefix " + strconv.Quote(e.Prefix) + "): " + e.Reason
	}
	return "invalid version " + strconv.Quote(e.Raw) + ": " + e.Reason
}

var numericRE = regexp.MustCompile(`^\d+$`)

// Parse strips prefix from raw, if present, and parses the remainder.
func Parse(raw, prefix string) (Version, error) {
	fail := func(reason string) (Version, error) {
		return Version{}, &FormatError{Raw: raw, Prefix: prefix, Reason: reason}
	}
	s := strings.TrimPrefix(raw, prefix)
	v := Version{Raw: raw}
	if i := strings.IndexAny(s, "-+"); i != -1 {
		suffix := s[i:]
		s = s[:i]
		if suffix[0] == '-' {
			pre, build, hasBuild := strings.Cut(suffix[1:], "+")
			if pre == "" {
				return fail("empty prerelease")
			}
			v.Prerelease = pre
			if hasBuild {
				if build == "" {
					return fail("empty build metadata")
				}
				v.Build = build
			}
		} else {
			if len(suffix) == 1 {
				return fail("empty build metadata")
			}
			v.Build = suffix[1:]
		}
	}
	if s == "" {
		return fail("no numeric components")
	}
	for _, part := range strings.Split(s, ".") {
		if !numericRE.MatchString(part) {
			return fail("non-numeric component " + strconv.Quote(part))
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fail(err.Error())
		}
		v.Components = append(v.Components, n)
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw, prefix string) Version {
	v, err := Parse(raw, prefix)
	if err != nil {
		panic(err)
	}
	return v
}

// IsRelease reports whether v carries neither a prerelease nor build marker.
func (v Version) IsRelease() bool {
	return v.Prerelease == "" && v.Build == ""
}

// String renders v canonically, without any prefix.
func (v Version) String() string {
	parts := make([]string, len(v.Components))
	for i, c := range v.Components {
		parts[i] = strconv.Itoa(c)
	}
	s := strings.Join(parts, ".")
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// buildComponents returns the build metadata as numeric components when
// every dot-separated field is numeric. Otherwise the metadata does not order.
func (v Version) buildComponents() []int {
	if v.Build == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v.Build, ".") {
		if !numericRE.MatchString(part) {
			return nil
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}

// componentsCmp compares numerically where a missing trailing component
// sorts below a present one, even a zero.
func componentsCmp(a, b []int) int {
	for i := 0; i < min(len(a), len(b)); i++ {
		if a[i] != b[i] {
			return cmp.Compare(a[i], b[i])
		}
	}
	return cmp.Compare(len(a), len(b))
}

var identRunRE = regexp.MustCompile(`\d+|\D+`)

// digitsCmp compares two runs of digits by value without converting them,
// so arbitrarily long runs order correctly.
func digitsCmp(a, b string) int {
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool { return s[0] >= '0' && s[0] <= '9' }

// identCmp compares one prerelease identifier as alternating runs of
// letters and digits. Digit runs compare by value and sort below letter
// runs; an identifier that is a prefix of another sorts first.
func identCmp(a, b string) int {
	ar, br := identRunRE.FindAllString(a, -1), identRunRE.FindAllString(b, -1)
	for i := 0; i < min(len(ar), len(br)); i++ {
		x, y := ar[i], br[i]
		switch xd, yd := isDigits(x), isDigits(y); {
		case xd && yd:
			if c := digitsCmp(x, y); c != 0 {
				return c
			}
		case xd:
			return -1
		case yd:
			return 1
		default:
			if c := strings.Compare(x, y); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(len(ar), len(br))
}

func prereleaseCmp(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < min(len(as), len(bs)); i++ {
		if c := identCmp(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// Compare returns -1, 0 or 1 as a orders before, with or after b.
func Compare(a, b Version) int {
	if c := componentsCmp(a.Components, b.Components); c != 0 {
		return c
	}
	if c := prereleaseCmp(a.Prerelease, b.Prerelease); c != 0 {
		return c
	}
	return componentsCmp(a.buildComponents(), b.buildComponents())
}

// Sort orders vs ascending. Equal versions keep their relative order.
func Sort(vs []Version) {
	slices.SortStableFunc(vs, Compare)
}

// Reverse orders vs descending. Equal versions keep their relative order.
func Reverse(vs []Version) {
	slices.SortStableFunc(vs, func(a, b Version) int { return Compare(b, a) })
}

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	// Flatten merges versions that compare equal into one canonically rendered entry.
	Flatten bool
	// NoDuplicates merges versions with identical components and markers.
	NoDuplicates bool
	// SkipError drops unparseable tags instead of failing.
	SkipError bool
	// Prefix is stripped from each tag before parsing.
	Prefix string
}

// Normalize parses raws and returns them sorted ascending.
//
// With SkipError unset, the first unparseable tag aborts with a *FormatError.
// Merged entries keep the first occurrence in input order.
func Normalize(raws []string, opts NormalizeOptions) ([]Version, error) {
	var out []Version
	seen := make(map[string]bool)
	for _, raw := range raws {
		v, err := Parse(raw, opts.Prefix)
		if err != nil {
			if opts.SkipError {
				continue
			}
			return nil, err
		}
		if opts.NoDuplicates || opts.Flatten {
			key := v.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	Sort(out)
	if opts.Flatten {
		out = slices.CompactFunc(out, func(a, b Version) bool { return Compare(a, b) == 0 })
	}
	return out, nil
}

// Strings returns the canonical rendering of each version.
func Strings(vs []Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

// Raws returns the original tag of each version.
func Raws(vs []Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Raw
	}
	return out
}

// JoinExtraSegments rewrites tags with more than three dot-separated fields so
// that the fields past the third become build metadata: "1.2.3.4" becomes
// "1.2.3+4". A prerelease or build suffix is kept in place, so "1.2.3.4-rc1"
// becomes "1.2.3-rc1+4" and still parses as a prerelease. Other tags are
// returned unchanged.
func JoinExtraSegments(tag string) string {
	core, suffix := tag, ""
	if i := strings.IndexAny(tag, "-+"); i != -1 {
		core, suffix = tag[:i], tag[i:]
	}
	fields := strings.Split(core, ".")
	if len(fields) <= 3 {
		return tag
	}
	base, extra := strings.Join(fields[:3], "."), strings.Join(fields[3:], ".")
	pre, build, _ := strings.Cut(suffix, "+")
	if build != "" {
		extra += "." + build
	}
	return base + pre + "+" + extra
}

// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		prefix   string
		expected Version
		wantErr  bool
	}{
		{"1.2.3", "", Version{[]int{1, 2, 3}, "", "", "1.2.3"}, false},                               // Basic version
		{"v1.2.3", "v", Version{[]int{1, 2, 3}, "", "", "v1.2.3"}, false},                            // Stripped prefix
		{"1.2.3", "v", Version{[]int{1, 2, 3}, "", "", "1.2.3"}, false},                              // Prefix absent
		{"go1.21.0", "go", Version{[]int{1, 21, 0}, "", "", "go1.21.0"}, false},                      // Longer prefix
		{"1.2", "", Version{[]int{1, 2}, "", "", "1.2"}, false},                                      // Two components
		{"1.2.3.4", "", Version{[]int{1, 2, 3, 4}, "", "", "1.2.3.4"}, false},                        // Four components
		{"1.2.3-rc1", "", Version{[]int{1, 2, 3}, "rc1", "", "1.2.3-rc1"}, false},                    // Prerelease
		{"1.2.3-rc.1", "", Version{[]int{1, 2, 3}, "rc.1", "", "1.2.3-rc.1"}, false},                 // Dotted prerelease
		{"1.2.3+4", "", Version{[]int{1, 2, 3}, "", "4", "1.2.3+4"}, false},                          // Build metadata
		{"1.2.3-rc1+meta", "", Version{[]int{1, 2, 3}, "rc1", "meta", "1.2.3-rc1+meta"}, false},      // Both
		{"v1.2.3", "", Version{}, true},                                                              // Unstripped prefix
		{"", "", Version{}, true},                                                                    // Empty string
		{"v", "v", Version{}, true},                                                                  // Prefix only
		{"1.2.x", "", Version{}, true},                                                               // Non-numeric component
		{"1..3", "", Version{}, true},                                                                // Empty component
		{"1.2.3-", "", Version{}, true},                                                              // Empty prerelease
		{"1.2.3+", "", Version{}, true},                                                              // Empty build metadata
		{"2024_08_21.ee7d0b6", "", Version{}, true},                                                  // Date tag
		{"go1.21rc2", "go", Version{}, true},                                                         // Unseparated prerelease
	}
	for _, tt := range tests {
		actual, err := Parse(tt.input, tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q, %q) error = %v, wantErr %v", tt.input, tt.prefix, err, tt.wantErr)
			continue
		}
		if err != nil {
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("Parse(%q, %q) error type = %T, want *FormatError", tt.input, tt.prefix, err)
			}
			continue
		}
		if diff := cmp.Diff(tt.expected, actual); diff != "" {
			t.Errorf("Parse(%q, %q) mismatch (-want +got):\n%s", tt.input, tt.prefix, diff)
		}
	}
}

func TestParsePrefixIndependentOrdering(t *testing.T) {
	for _, pair := range [][2]string{
		{"v1.0.0", "1.0.0"},
		{"v2.10.3", "2.10.3"},
		{"v0.0.1", "0.0.1"},
	} {
		withPrefix := MustParse(pair[0], "v")
		without := MustParse(pair[1], "v")
		if Compare(withPrefix, without) != 0 {
			t.Errorf("Compare(%q, %q) = %d, want 0", pair[0], pair[1], Compare(withPrefix, without))
		}
		if withPrefix.String() != pair[1] {
			t.Errorf("String(%q) = %q, want %q", pair[0], withPrefix.String(), pair[1])
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{"1.0.0", "1.0.0", 0},                 // Equal
		{"1.0.0", "2.0.0", -1},                // Major difference
		{"1.0.0", "1.1.0", -1},                // Minor difference
		{"1.0.0", "1.0.1", -1},                // Patch difference
		{"1.0.1", "1.0.0", 1},                 // Patch difference (swapped)
		{"1.9.0", "1.10.0", -1},               // Numeric, not lexical
		{"1.0", "1.0.0", -1},                  // Missing component below zero
		{"1.2.3", "1.2.3.0", -1},              // Fourth component
		{"1.2.3.4", "1.2.3.10", -1},           // Fourth component numeric
		{"1.0.0-rc1", "1.0.0", -1},            // Prerelease vs. release
		{"1.0.0", "1.0.0-rc1", 1},             // Release vs. prerelease
		{"1.0.0-alpha", "1.0.0-beta", -1},     // Alphabetical prerelease
		{"1.0.0-rc2", "1.0.0-rc10", -1},       // Numeric prerelease suffix
		{"1.0.0-beta", "1.0.0-beta.2", -1},    // Length precedence
		{"1.0.0-rc1", "1.0.0-rc1a", -1},       // Trailing letters order
		{"1.0.0-rc1b", "1.0.0-rc1a", 1},       // Trailing letters compared
		{"1.0.0-rc1", "1.0.0-rc01", 0},        // Leading zeros ignored
		{"1.0.0-1", "1.0.0-rc", -1},           // Digits below letters
		{"1.2.3+4", "1.2.3+5", -1},            // Numeric build orders
		{"1.2.3", "1.2.3+4", -1},              // Missing build below numeric build
		{"1.2.3+4", "1.2.4", -1},              // Build below next patch
		{"1.0.0+build.1", "1.0.0+build.2", 0}, // Non-numeric build ignored
	}
	for _, tt := range tests {
		actual := Compare(MustParse(tt.a, ""), MustParse(tt.b, ""))
		if actual != tt.expected {
			t.Errorf("Compare(%q, %q) = %d, expected %d", tt.a, tt.b, actual, tt.expected)
		}
	}
}

func TestComparePrereleaseLongDigits(t *testing.T) {
	long := "rc" + strings.Repeat("9", 30)
	longer := "rc1" + strings.Repeat("0", 30)
	a, b := MustParse("1.0.0-"+long, ""), MustParse("1.0.0-"+longer, "")
	if got := Compare(a, b); got != -1 {
		t.Errorf("Compare(%q, %q) = %d, want -1", a.Raw, b.Raw, got)
	}
	if got := Compare(b, MustParse("1.0.0-rc9", "")); got != 1 {
		t.Errorf("Compare(%q, 1.0.0-rc9) = %d, want 1", b.Raw, got)
	}
}

func TestPrereleaseAlwaysLess(t *testing.T) {
	for _, base := range []string{"0.0.1", "1.2.3", "4.0", "1.2.3.4"} {
		for _, pre := range []string{"rc1", "alpha", "0", "dev.20240101"} {
			a := MustParse(base+"-"+pre, "")
			b := MustParse(base, "")
			if Compare(a, b) != -1 {
				t.Errorf("Compare(%q, %q) = %d, want -1", a.Raw, b.Raw, Compare(a, b))
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		opts    NormalizeOptions
		want    []string
		wantErr bool
	}{
		{
			name:  "no duplicates",
			input: []string{"1.0.0", "1.0.0", "1.0.1"},
			opts:  NormalizeOptions{NoDuplicates: true},
			want:  []string{"1.0.0", "1.0.1"},
		},
		{
			name:  "duplicates kept",
			input: []string{"1.0.0", "1.0.0", "1.0.1"},
			opts:  NormalizeOptions{},
			want:  []string{"1.0.0", "1.0.0", "1.0.1"},
		},
		{
			name:  "skip error",
			input: []string{"1.0.0", "not-a-version", "2.0.0"},
			opts:  NormalizeOptions{SkipError: true},
			want:  []string{"1.0.0", "2.0.0"},
		},
		{
			name:    "error surfaced",
			input:   []string{"1.0.0", "not-a-version", "2.0.0"},
			opts:    NormalizeOptions{},
			wantErr: true,
		},
		{
			name:  "sorted ascending",
			input: []string{"v1.10.0", "v1.9.0", "v1.9.0-rc1", "v2.0.0"},
			opts:  NormalizeOptions{Prefix: "v"},
			want:  []string{"v1.9.0-rc1", "v1.9.0", "v1.10.0", "v2.0.0"},
		},
		{
			name:  "prefix variants collapse",
			input: []string{"v1.0.0", "1.0.0", "v1.1.0"},
			opts:  NormalizeOptions{Prefix: "v", NoDuplicates: true},
			want:  []string{"v1.0.0", "v1.1.0"},
		},
		{
			name:  "flatten merges equal builds",
			input: []string{"1.0.0+build.1", "1.0.0+build.2", "1.0.1"},
			opts:  NormalizeOptions{Flatten: true},
			want:  []string{"1.0.0+build.1", "1.0.1"},
		},
		{
			name:  "no duplicates keeps distinct builds",
			input: []string{"1.0.0+build.1", "1.0.0+build.2"},
			opts:  NormalizeOptions{NoDuplicates: true},
			want:  []string{"1.0.0+build.1", "1.0.0+build.2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Errorf("Normalize() error type = %T, want *FormatError", err)
				}
				return
			}
			if diff := cmp.Diff(tt.want, Raws(got)); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	vs, err := Normalize([]string{"1.0.0", "1.2.0", "1.1.0", "1.2.0-rc1"}, NormalizeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	Reverse(vs)
	want := []string{"1.2.0", "1.2.0-rc1", "1.1.0", "1.0.0"}
	if diff := cmp.Diff(want, Strings(vs)); diff != "" {
		t.Errorf("Reverse() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtraSegments(t *testing.T) {
	tests := []struct {
		tag    string
		joined string
	}{
		{"1.2.3", "1.2.3"},
		{"1.2.3.4", "1.2.3+4"},
		{"1.2.3.4.5", "1.2.3+4.5"},
		{"1.2", "1.2"},
		{"v1.2.3.4-rc1", "v1.2.3-rc1+4"},
		{"1.2.3.4-rc1+meta", "1.2.3-rc1+4.meta"},
		{"1.2.3.4+meta", "1.2.3+4.meta"},
		{"1.2.3-rc.1.2", "1.2.3-rc.1.2"},
	}
	for _, tt := range tests {
		if got := JoinExtraSegments(tt.tag); got != tt.joined {
			t.Errorf("JoinExtraSegments(%q) = %q, want %q", tt.tag, got, tt.joined)
		}
	}
	v := MustParse(JoinExtraSegments("v1.2.3.4-rc1"), "v")
	if v.Prerelease != "rc1" || v.Build != "4" {
		t.Errorf("Parse(JoinExtraSegments(v1.2.3.4-rc1)) = prerelease %q build %q, want rc1 and 4", v.Prerelease, v.Build)
	}
}

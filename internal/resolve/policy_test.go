// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPolicyCandidates(t *testing.T) {
	tests := []struct {
		name   string
		policy TagSelectionPolicy
		tags   []string
		prefix string
		want   []string
	}{
		{
			name:   "default",
			policy: Default{},
			tags:   []string{"v1.0.0", "v1.1.0-rc1", "v1.1.0", "v1.0.0", "latest", "v1.1.0+meta"},
			prefix: "v",
			want:   []string{"v1.1.0", "v1.0.0"},
		},
		{
			name:   "date ordered",
			policy: DateOrdered{},
			tags:   []string{"2023_12_05.abc", "2024_01_10.def", "2023_12_05.abc"},
			want:   []string{"2024_01_10.def", "2023_12_05.abc"},
		},
		{
			name:   "multi segment",
			policy: MultiSegment{},
			tags:   []string{"0.1.0", "0.1.0.1", "0.1.0.2", "0.2.0-rc1", "0.1.1"},
			want:   []string{"0.1.1", "0.1.0.2", "0.1.0.1", "0.1.0"},
		},
		{
			name:   "multi segment skips genuine metadata",
			policy: MultiSegment{},
			tags:   []string{"0.1.0", "0.1.0+dirty"},
			want:   []string{"0.1.0"},
		},
		{
			name:   "multi segment skips four field prereleases",
			policy: MultiSegment{},
			prefix: "v",
			tags:   []string{"v1.2.3.3", "v1.2.3.4-rc1", "v0.1.0", "v1.2.3.4-rc1+meta"},
			want:   []string{"v1.2.3.3", "v0.1.0"},
		},
		{
			name:   "multi segment skips colliding rewrites",
			policy: MultiSegment{},
			tags:   []string{"1.2.3.4", "1.2.3+4", "1.2.3.3", "1.2.3.3"},
			want:   []string{"1.2.3.3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Candidates(tt.tags, tt.prefix)
			if err != nil {
				t.Fatalf("Candidates() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPolicyByName(t *testing.T) {
	for name, want := range map[string]string{
		"":             DefaultPolicyName,
		"semver":       DefaultPolicyName,
		"date":         DateOrderedPolicyName,
		"multisegment": MultiSegmentPolicyName,
	} {
		p, err := PolicyByName(name)
		if err != nil {
			t.Errorf("PolicyByName(%q) error = %v", name, err)
			continue
		}
		if p.Name() != want {
			t.Errorf("PolicyByName(%q).Name() = %q, want %q", name, p.Name(), want)
		}
	}
	_, err := PolicyByName("calver")
	if err == nil {
		t.Fatal("PolicyByName(calver) error = nil, want error")
	}
	if want := PolicyNames(); !strings.Contains(err.Error(), want) {
		t.Errorf("PolicyByName(calver) error = %q, want it to list %q", err, want)
	}
}

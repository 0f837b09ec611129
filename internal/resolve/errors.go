// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"strings"
	"time"
)

// NoTagFoundError is returned when no tag qualifies as a release.
type NoTagFoundError struct {
	Repository string
	Candidates []string
}

func (e *NoTagFoundError) Error() string {
	return fmt.Sprintf("no latest tag found at repo %s [candidates=%s]", e.Repository, strings.Join(e.Candidates, ","))
}

// NoClosestTagError is returned when no candidate tag was committed at or
// before the reference time.
type NoClosestTagError struct {
	Repository string
	Reference  time.Time
	Candidates []string
}

func (e *NoClosestTagError) Error() string {
	return fmt.Sprintf("no closest tag found at repo %s for time %s [candidates=%s]", e.Repository, e.Reference.Format(time.RFC3339), strings.Join(e.Candidates, ","))
}

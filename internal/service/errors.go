package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrGradeNotFound indicates no grade exists for the identifier.
var ErrGradeNotFound = errors.New("grade not found")

// ErrVersionNotFound indicates the requested ledger version does not exist.
var ErrVersionNotFound = errors.New("grade version not found")

// ErrDraftNotFound indicates no draft is stored for the submission.
var ErrDraftNotFound = errors.New("draft not found")

// ErrGradeConflict indicates a grade already exists for the submission and
// the caller must update instead of submitting.
var ErrGradeConflict = errors.New("grade already exists for submission")

// ErrStaleVersion indicates the caller's expected version no longer matches
// the live grade; refetch and reapply.
var ErrStaleVersion = errors.New("grade version is stale")

// ErrNoOpUpdate indicates the candidate snapshot is identical to the current
// one; a meaningless ledger entry is refused.
var ErrNoOpUpdate = errors.New("update changes nothing")

// ErrRubricIntegrity indicates a grading payload references criteria or
// levels outside the active rubric. This is a data-integrity defect, never
// coerced into a field validation message.
var ErrRubricIntegrity = errors.New("rubric integrity violation")

// ErrRubricDefinitionInvalid indicates an imported rubric document failed
// schema or cross-field validation.
var ErrRubricDefinitionInvalid = errors.New("rubric definition invalid")

// ValidationError aggregates field-level grading violations. All rules are
// evaluated; nothing short-circuits.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

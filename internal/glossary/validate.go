package glossary

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxTermLength       = 256
	maxDefinitionLength = 8192
	maxCategoryLength   = 128
)

// ValidationError reports per-field failures for a term that cannot be
// accepted into the glossary.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateTerm checks a term against the glossary's field constraints and
// returns a *ValidationError describing every failing field, or nil.
func ValidateTerm(t Term) error {
	fields := make(map[string]string)

	if strings.TrimSpace(t.Term) == "" {
		fields["term"] = "is required"
	} else if len(t.Term) > maxTermLength {
		fields["term"] = fmt.Sprintf("must be at most %d characters", maxTermLength)
	}

	if strings.TrimSpace(t.Definition) == "" {
		fields["definition"] = "is required"
	} else if len(t.Definition) > maxDefinitionLength {
		fields["definition"] = fmt.Sprintf("must be at most %d characters", maxDefinitionLength)
	}

	if strings.TrimSpace(t.Category) == "" {
		fields["category"] = "is required"
	} else if len(t.Category) > maxCategoryLength {
		fields["category"] = fmt.Sprintf("must be at most %d characters", maxCategoryLength)
	}

	// A partially filled case study is a seeding mistake: either all four
	// fields are present or none of them should be.
	caseStudyFields := map[string]string{
		"client_name":    t.ClientName,
		"structure":      t.Structure,
		"implementation": t.Implementation,
		"results":        t.Results,
	}
	filled := 0
	for _, v := range caseStudyFields {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	if filled > 0 && filled < len(caseStudyFields) {
		for name, v := range caseStudyFields {
			if strings.TrimSpace(v) == "" {
				fields[name] = "is required when any case study field is set"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

package rules

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	kerrors "github.com/agenix-go/agenix/internal/errors"
)

// schemaJSON is the JSON schema describing a valid rule document. It is
// versioned with the tool and printed verbatim by the --schema flag.
//
//go:embed agenix.schema.json
var schemaJSON []byte

// PrintSchema writes the embedded rule document schema verbatim.
func PrintSchema(w io.Writer) error {
	_, err := w.Write(schemaJSON)
	return err
}

// Violation is a single schema violation, located by JSON pointer.
type Violation struct {
	Pointer string
	Reason  string
}

// ValidationError reports all schema violations found in a rule document.
type ValidationError struct {
	File       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "secrets rules are invalid: '%s'", e.File)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n - %s: %s", v.Pointer, v.Reason)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return kerrors.ErrInvalidRules
}

// validateSchema checks the evaluated rule document against the embedded
// schema. All violations are collected; rulesFile is only used for the
// error message.
func validateSchema(doc map[string]any, rulesFile string) error {
	schema := gojsonschema.NewBytesLoader(schemaJSON)
	document := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return fmt.Errorf("%w: '%s': %v", kerrors.ErrInvalidRules, rulesFile, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, Violation{
			Pointer: jsonPointer(re.Context()),
			Reason:  violationReason(re),
		})
	}
	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Pointer < violations[j].Pointer
	})

	return &ValidationError{File: rulesFile, Violations: violations}
}

// jsonPointer renders a violation's context chain as an RFC 6901 JSON
// pointer. The chain is walked segment by segment rather than through the
// dotted Field() notation, which is ambiguous for secret names like
// "github-runner.token.age" that contain dots themselves.
func jsonPointer(ctx *gojsonschema.JsonContext) string {
	if ctx == nil {
		return ""
	}

	// JsonContext only exposes a delimiter-joined rendering; NUL cannot
	// appear in a document key, so it recovers the exact segments.
	segments := strings.Split(ctx.String("\x00"), "\x00")

	var b strings.Builder
	for _, segment := range segments {
		if segment == "(root)" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		b.WriteString("/")
		b.WriteString(segment)
	}
	return b.String()
}

// violationReason renders a violation the way the schema contract expects,
// quoting the offending value as JSON for type mismatches.
func violationReason(re gojsonschema.ResultError) string {
	if re.Type() == "invalid_type" {
		value, err := json.Marshal(re.Value())
		if err == nil {
			return fmt.Sprintf("%s is not of type %q", value, re.Details()["expected"])
		}
	}
	return re.Description()
}

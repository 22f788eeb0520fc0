// internal/cmd/report.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/anmicius0/artifactory-sync/internal/config"
)

// Output formats of the run summary.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// RunReport is the summary printed at the end of every command.
type RunReport struct {
	RunID      string
	Success    bool
	Operations []config.Operation
}

func newRunReport(runID string, ops *config.OperationLog) RunReport {
	return RunReport{
		RunID:      runID,
		Success:    !ops.Failed(),
		Operations: ops.All(),
	}
}

// writeReport renders report to w in the given format.
func writeReport(w io.Writer, format string, report RunReport) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toCamelCaseMap(report))
	case OutputText, "":
		return writeTextReport(w, report)
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}

func writeTextReport(w io.Writer, report RunReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", report.RunID)
	for _, op := range report.Operations {
		fmt.Fprintf(&b, "[%s] %s: %s\n", op.Status, op.Name, op.Message)
		for _, f := range op.Failures {
			fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.Reason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// toCamelCaseMap converts structs to maps keyed by lowerCamelCase field names,
// recursing through pointers, slices and nested structs.
func toCamelCaseMap(data any) any {
	if t, ok := data.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	val := reflect.ValueOf(data)

	// Handle Pointers
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	// Handle Slices/Arrays
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = toCamelCaseMap(val.Index(i).Interface())
		}
		return out
	}

	// Handle Structs
	if val.Kind() == reflect.Struct {
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if field.PkgPath != "" {
				continue
			}
			out[camelKey(field.Name)] = toCamelCaseMap(val.Field(i).Interface())
		}
		return out
	}

	// Return primitives as-is
	return data
}

// camelKey lowers the first letter and keeps trailing acronyms readable:
// "RunID" becomes "runId", "URL" becomes "url".
func camelKey(key string) string {
	for _, acronym := range []string{"ID", "URL"} {
		if key == acronym {
			return strings.ToLower(acronym)
		}
		if strings.HasSuffix(key, acronym) {
			prefix := key[:len(key)-len(acronym)]
			return lowerFirst(prefix) + acronym[:1] + strings.ToLower(acronym[1:])
		}
	}
	return lowerFirst(key)
}

// lowerFirst lowers the first rune of a string
func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

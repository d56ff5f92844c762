// Package persist encodes and decodes the task list stored in a persistent slot.
//
// The current form is a versioned JSON object:
//
//	{"schema_version": 1, "tasks": [{"id": "...", "text": "...", "completed": false}]}
//
// A bare JSON array is the legacy, unversioned form. It is migrated on decode.
package persist

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"tasklist/internal/task"
)

// CurrentVersion is the schema_version written by Encode.
const CurrentVersion = 1

// ErrMalformed is returned when stored data cannot be decoded into a task list.
var ErrMalformed = errors.New("malformed task list")

//go:embed schemas/*.json
var schemaFS embed.FS

// Document is the versioned persisted form.
type Document struct {
	SchemaVersion int         `json:"schema_version"`
	Tasks         []task.Task `json:"tasks"`
}

// legacyTask is one entry of the unversioned array form. The editing flag is
// read and discarded.
type legacyTask struct {
	Text      string `json:"text"`
	Editing   bool   `json:"editing"`
	Completed bool   `json:"completed"`
}

// ValidationError represents a schema violation at a JSON path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Encode renders tasks in the current persisted form with 2-space indentation
// and a trailing newline.
func Encode(tasks []task.Task) ([]byte, error) {
	doc := Document{SchemaVersion: CurrentVersion, Tasks: tasks}
	if doc.Tasks == nil {
		doc.Tasks = []task.Task{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal task list: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses stored data in any supported form. newID assigns identifiers
// to migrated legacy entries; nil means task.NewID.
// All decode failures wrap ErrMalformed.
func Decode(data []byte, newID func() string) ([]task.Task, error) {
	if newID == nil {
		newID = task.NewID
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var raw interface{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch trimmed[0] {
	case '[':
		return decodeLegacy(trimmed, raw, newID)
	case '{':
		return decodeVersioned(trimmed, raw)
	default:
		return nil, fmt.Errorf("%w: unexpected top-level value", ErrMalformed)
	}
}

func decodeVersioned(data []byte, raw interface{}) ([]task.Task, error) {
	var header struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if header.SchemaVersion == nil {
		return nil, fmt.Errorf("%w: missing schema_version", ErrMalformed)
	}

	switch *header.SchemaVersion {
	case 1:
		if err := validate("v1.schema.json", raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported schema_version %d", ErrMalformed, *header.SchemaVersion)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	seen := make(map[string]bool, len(doc.Tasks))
	tasks := make([]task.Task, 0, len(doc.Tasks))
	for i, t := range doc.Tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, &ValidationError{
				Path: fmt.Sprintf("tasks[%d].id", i),
				Err:  fmt.Errorf("duplicate id %q", t.ID),
			})
		}
		seen[t.ID] = true
		text, ok := task.NormalizeText(t.Text)
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, &ValidationError{
				Path: fmt.Sprintf("tasks[%d].text", i),
				Err:  errors.New("text is blank"),
			})
		}
		t.Text = text
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// decodeLegacy migrates the unversioned array form: text is trimmed, blank
// entries are dropped, missing completion defaults to false, and fresh IDs are
// assigned.
func decodeLegacy(data []byte, raw interface{}, newID func() string) ([]task.Task, error) {
	if err := validate("legacy.schema.json", raw); err != nil {
		return nil, err
	}

	var entries []legacyTask
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tasks := make([]task.Task, 0, len(entries))
	for _, e := range entries {
		text, ok := task.NormalizeText(e.Text)
		if !ok {
			continue
		}
		tasks = append(tasks, task.Task{
			ID:        newID(),
			Text:      text,
			Completed: e.Completed,
		})
	}
	return tasks, nil
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compiledSchema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas, schemasErr = compileSchemas()
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %s", name)
	}
	return s, nil
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaURL(entry.Name()), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", entry.Name(), err)
		}
	}

	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, entry := range entries {
		s, err := compiler.Compile(schemaURL(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		out[entry.Name()] = s
	}
	return out, nil
}

func schemaURL(name string) string {
	return "https://tasklist.invalid/schemas/" + name
}

func validate(name string, raw interface{}) error {
	schema, err := compiledSchema(name)
	if err != nil {
		return err
	}
	if err := schema.Validate(raw); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var errs []error
		collectSchemaErrors(&errs, ve)
		return fmt.Errorf("%w: %w", ErrMalformed, errors.Join(errs...))
	}
	return nil
}

func collectSchemaErrors(errs *[]error, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		*errs = append(*errs, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  errors.New(err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(errs, cause)
	}
}

// jsonPointerToPath turns "/tasks/0/text" into "tasks[0].text".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

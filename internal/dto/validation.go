package dto

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	createSchema = mustCompile("todo_create.json")
	updateSchema = mustCompile("todo_update.json")
)

func mustCompile(name string) *jsonschema.Schema {
	src, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("dto: read schema %s: %v", name, err))
	}
	url := "mem://schemas/" + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(src)); err != nil {
		panic(fmt.Sprintf("dto: add schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// ErrorItem is one validation problem, addressed by its location in the request.
type ErrorItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError carries every problem found in a request. Handlers answer it with 422.
type ValidationError struct {
	Items []ErrorItem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Items))
	for i, it := range e.Items {
		msgs[i] = strings.Join(it.Loc, ".") + ": " + it.Msg
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(loc []string, msg, typ string) *ValidationError {
	return &ValidationError{Items: []ErrorItem{{Loc: loc, Msg: msg, Type: typ}}}
}

// validateBody parses raw JSON and checks it against schema.
func validateBody(schema *jsonschema.Schema, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return newValidationError([]string{"body"}, "invalid JSON: "+err.Error(), "json_invalid")
	}
	if dec.More() {
		return newValidationError([]string{"body"}, "invalid JSON: trailing data", "json_invalid")
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Items: collectSchemaErrors(ve, nil)}
		}
		return newValidationError([]string{"body"}, err.Error(), "value_error")
	}
	return nil
}

var missingProps = regexp.MustCompile(`"([^"]+)"`)

// collectSchemaErrors flattens the leaf causes of a schema validation error.
func collectSchemaErrors(err *jsonschema.ValidationError, out []ErrorItem) []ErrorItem {
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			out = collectSchemaErrors(cause, out)
		}
		return out
	}

	loc := []string{"body"}
	for _, seg := range strings.Split(strings.Trim(err.InstanceLocation, "/"), "/") {
		if seg != "" {
			loc = append(loc, seg)
		}
	}
	keyword := path.Base(err.KeywordLocation)

	if keyword == "required" {
		for _, m := range missingProps.FindAllStringSubmatch(err.Message, -1) {
			out = append(out, ErrorItem{
				Loc:  append(append([]string{}, loc...), m[1]),
				Msg:  "field required",
				Type: "missing",
			})
		}
		return out
	}
	return append(out, ErrorItem{Loc: loc, Msg: err.Message, Type: keyword})
}

// FromBindError converts a gin query/path binding error into a ValidationError.
func FromBindError(where string, err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		items := make([]ErrorItem, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			items = append(items, ErrorItem{
				Loc:  []string{where, strings.ToLower(fe.Field())},
				Msg:  fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param()),
				Type: fe.Tag(),
			})
		}
		return &ValidationError{Items: items}
	}
	return newValidationError([]string{where}, err.Error(), "type_error")
}

package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// InvalidDocumentError reports a document that failed structural
// validation before planning started.
type InvalidDocumentError struct {
	Reason string
	Err    error
}

func (e *InvalidDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid deployment document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid deployment document: %s", e.Reason)
}

func (e *InvalidDocumentError) Unwrap() error { return e.Err }

// Parse reads a YAML deployment document, validates it against the
// document schema and decodes it into a File.
//
// Example:
//
//	f, err := topology.Parse(bytes.NewReader(raw))
//	if err != nil {
//	    return err
//	}
//	for name := range f.Blueprint.Services {
//	    ...
//	}
func Parse(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading deployment document: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &InvalidDocumentError{Reason: "not valid YAML", Err: err}
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&file); err != nil {
		return nil, &InvalidDocumentError{Reason: "cannot decode document", Err: err}
	}

	for name, svc := range file.Blueprint.Services {
		if svc == nil || svc.Component.IsZero() {
			return nil, &InvalidDocumentError{
				Reason: fmt.Sprintf("service %q has no component selector", name),
			}
		}
	}
	return &file, nil
}

// validateDocument checks doc against the document schema. The YAML
// value is bridged through JSON so the schema library sees the exact
// types it validates against.
func validateDocument(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return &InvalidDocumentError{Reason: "document is not JSON compatible", Err: err}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return &InvalidDocumentError{Reason: "document is not JSON compatible", Err: err}
	}
	if err := sch.Validate(instance); err != nil {
		return &InvalidDocumentError{Reason: "schema validation failed", Err: err}
	}
	return nil
}

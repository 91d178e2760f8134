// Package report hands finished results to local history and the
// submission endpoint.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verte-zerg/typetest/internal/model"
)

//go:embed payload.schema.json
var payloadSchema []byte

const payloadSchemaURL = "payload.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Payload is the canonical submission body.
type Payload struct {
	WPM             int     `json:"wpm"`
	Accuracy        int     `json:"accuracy"`
	RawWPM          int     `json:"rawWpm"`
	DurationSeconds float64 `json:"durationSeconds"`
	Identity        string  `json:"identity,omitempty"`
}

// NewPayload builds the submission body for a finished result. The user is
// identified by email when one is stored, otherwise by display name.
func NewPayload(res model.Result, id *model.Identity) Payload {
	p := Payload{
		WPM:             res.WPM,
		Accuracy:        res.Accuracy,
		RawWPM:          res.RawWPM,
		DurationSeconds: res.DurationSeconds,
	}
	if id != nil {
		p.Identity = strings.TrimSpace(id.Email)
		if p.Identity == "" {
			p.Identity = id.DisplayName()
		}
	}
	return p
}

// Validate checks the payload against the embedded JSON schema.
func (p Payload) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(payloadSchemaURL, bytes.NewReader(payloadSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to add payload schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(payloadSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile payload schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package save

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"gojournal/internal/backend"
)

//go:embed schema/save_request.schema.json
var saveRequestSchema []byte

// Validation failures are permanent for the snapshot that produced them:
// retrying the identical payload cannot succeed, so the caller must shrink
// or fix the document first.
var (
	ErrTooManyElements = errors.New("save: too many elements")
	ErrPayloadTooLarge = errors.New("save: payload too large")
)

// SchemaError reports a payload that failed structural validation.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "save: payload failed schema validation: " + strings.Join(e.Problems, "; ")
}

var (
	schemaOnce   sync.Once
	schemaLoaded *gojsonschema.Schema
	schemaErr    error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaLoaded, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(saveRequestSchema))
	})
	return schemaLoaded, schemaErr
}

// Limits caps what a single save may carry. Zero values disable a cap.
type Limits struct {
	MaxElements     int
	MaxPayloadBytes int
}

// validate checks a wire-ready request against the element count cap, the
// serialized size cap, and the JSON schema. It returns the serialized body
// so callers do not marshal twice.
func validate(sr backend.SaveRequest, lim Limits) ([]byte, error) {
	count := len(sr.Elements)
	for _, p := range sr.Pages {
		count += len(p.Elements)
	}
	if lim.MaxElements > 0 && count > lim.MaxElements {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyElements, count, lim.MaxElements)
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("save: marshal payload: %w", err)
	}
	if lim.MaxPayloadBytes > 0 && len(body) > lim.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrPayloadTooLarge, len(body), lim.MaxPayloadBytes)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("save: compile schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("save: schema validate: %w", err)
	}
	if !res.Valid() {
		probs := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			probs = append(probs, re.String())
		}
		return nil, &SchemaError{Problems: probs}
	}
	return body, nil
}

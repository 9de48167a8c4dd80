package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// VerifyStrict runs kin-openapi's loader and validator over the normalized
// document. It reports problems but never changes how commands are built.
func VerifyStrict(ctx context.Context, doc *Document) ([]string, error) {
	if doc == nil || doc.Spec == nil {
		return nil, errors.New("nil document")
	}
	b, err := json.Marshal(doc.Spec)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", doc.Source, err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	t, err := loader.LoadFromData(b)
	if err != nil {
		return []string{err.Error()}, nil
	}

	err = t.Validate(ctx, openapi3.DisableExamplesValidation())
	if err == nil {
		return nil, nil
	}
	var me openapi3.MultiError
	if errors.As(err, &me) {
		out := make([]string, 0, len(me))
		for _, e := range me {
			out = append(out, e.Error())
		}
		return out, nil
	}
	return []string{err.Error()}, nil
}

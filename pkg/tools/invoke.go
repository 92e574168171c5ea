package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Invoke validates args against the tool's declared input schema, runs the
// handler under the tool's timeout, and validates the result before
// returning it. A schema mismatch on either side is reported distinctly
// from an execution failure so callers can tell "bad arguments" from
// "tool broke."
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (Result, *Error) {
	entry, ok := r.entries[name]
	if !ok {
		return Result{}, &Error{Kind: ErrValidation, Message: fmt.Sprintf("unknown tool %q", name)}
	}

	start := time.Now()
	res, toolErr := r.invokeEntry(ctx, entry, args)

	r.history.push(HistoryEntry{
		ToolName:  name,
		Args:      args,
		Err:       toolErr,
		Duration:  time.Since(start),
		StartedAt: start,
	})

	if toolErr != nil {
		return Result{}, toolErr
	}
	return res, nil
}

func (r *Registry) invokeEntry(ctx context.Context, entry *registryEntry, args map[string]any) (Result, *Error) {
	if entry.def.InputSchema != nil {
		if err := validateAgainst(entry.def.InputSchema, args); err != nil {
			return Result{}, &Error{Kind: ErrValidation, Message: "input validation: " + err.Error()}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, entry.def.Timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := entry.handler(callCtx, args)
		done <- outcome{res, err}
	}()

	select {
	case <-callCtx.Done():
		return Result{}, &Error{Kind: ErrTimeout, Message: fmt.Sprintf("tool %q exceeded %s", entry.def.Name, entry.def.Timeout)}
	case out := <-done:
		if out.err != nil {
			return Result{}, &Error{Kind: ErrExecution, Message: out.err.Error()}
		}
		if entry.def.OutputSchema != nil {
			if err := validateResult(entry.def.OutputSchema, out.res); err != nil {
				return Result{}, &Error{Kind: ErrMalformedResult, Message: "output validation: " + err.Error()}
			}
		}
		return out.res, nil
	}
}

func validateAgainst(schema *jsonschema.Schema, args map[string]any) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return err
	}
	return resolved.Validate(args)
}

// validateResult validates the JSON-bearing content blocks of a tool
// result against its declared output schema. Text and audio blocks are
// opaque to schema validation by design.
func validateResult(schema *jsonschema.Schema, res Result) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return err
	}
	for _, c := range res.Content {
		if c.Type != ContentJSON {
			continue
		}
		// Round-trip through JSON so the validator sees plain
		// map/slice/scalar values regardless of the concrete Go type
		// the handler produced.
		raw, err := json.Marshal(c.JSON)
		if err != nil {
			return err
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if err := resolved.Validate(v); err != nil {
			return err
		}
	}
	return nil
}

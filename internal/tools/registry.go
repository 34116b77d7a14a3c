package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"krishi/internal/llm"
)

var (
	ErrUnregistered     = errors.New("unregistered capability")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvalidName      = errors.New("invalid tool name")
	ErrDuplicate        = errors.New("tool already registered")
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Error ties a failure to the tool that produced it.
type Error struct {
	Tool string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("tool %q: %v", e.Tool, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type entry struct {
	spec   llm.ToolSpec
	schema *gojsonschema.Schema
	call   func(ctx context.Context, raw []byte) (string, error)
}

// Registry maps capability names to typed handlers. Registration is not
// synchronized; build the registry fully before handing it to callers.
// Call is safe for concurrent use afterwards.
type Registry struct {
	order   []string
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a handler whose arguments decode into A. A must be a struct;
// its JSON schema is what the model sees and what arguments are checked against.
func Register[A any](r *Registry, name, description string, fn func(ctx context.Context, args A) (string, error)) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	if fn == nil {
		return fmt.Errorf("tool %q: nil handler", name)
	}

	var zero A
	if t := reflect.TypeOf(zero); t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("tool %q: arguments must be a struct, got %T", name, zero)
	}

	params, err := schemaOf(zero)
	if err != nil {
		return fmt.Errorf("tool %q: schema: %w", name, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("tool %q: compile schema: %w", name, err)
	}

	r.entries[name] = &entry{
		spec: llm.ToolSpec{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
		schema: compiled,
		call: func(ctx context.Context, raw []byte) (string, error) {
			var args A
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			return fn(ctx, args)
		},
	}
	r.order = append(r.order, name)
	return nil
}

func schemaOf(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
	b, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, err
	}

	var params map[string]any
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, err
	}
	delete(params, "$schema")
	delete(params, "$id")
	if _, ok := params["type"]; !ok {
		params["type"] = "object"
	}
	return params, nil
}

// Specs lists the declared capabilities in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	out := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].spec)
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Call validates args against the tool's schema and runs it. Failures are
// returned as *Error wrapping ErrUnregistered, ErrInvalidArguments or the
// handler's own error.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	e, ok := r.entries[name]
	if !ok {
		return "", &Error{Tool: name, Err: ErrUnregistered}
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := e.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return "", &Error{Tool: name, Err: fmt.Errorf("%w: %v", ErrInvalidArguments, err)}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			msgs = append(msgs, re.String())
		}
		return "", &Error{Tool: name, Err: fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return "", &Error{Tool: name, Err: fmt.Errorf("%w: %v", ErrInvalidArguments, err)}
	}

	out, err := e.call(ctx, raw)
	if err != nil {
		return "", &Error{Tool: name, Err: err}
	}
	return out, nil
}

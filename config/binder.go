package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Binder decodes map[string]any data into Go structs and validates the result.
//
// Decoding uses mapstructure with `config` tags, weak typing (so "8080" binds
// to an int) and hooks for durations ("5s") and comma-separated slices
// ("a, b" -> []string{"a", "b"}). Validation uses `validate` tags.
type Binder struct {
	validator *validator.Validate
}

// BindError reports which stage failed: "decode" or "validate".
type BindError struct {
	Stage string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func NewBinder() *Binder {
	return &Binder{
		validator: validator.New(),
	}
}

// Bind decodes source into target, a pointer to a struct, then validates it.
// target may be partially populated when validation fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	if err := b.decode(source, target); err != nil {
		return &BindError{Stage: "decode", Err: err}
	}
	if err := b.validator.Struct(target); err != nil {
		return &BindError{Stage: "validate", Err: err}
	}
	return nil
}

func (b *Binder) decode(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			trimStringsHook,
		),
		TagName: "config",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(source)
}

// trimStringsHook trims the elements of string lists, so "a, b" from an
// environment variable yields the same aliases as a YAML list.
func trimStringsHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	items, ok := data.([]string)
	if !ok {
		return data, nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.TrimSpace(it)
	}
	return out, nil
}

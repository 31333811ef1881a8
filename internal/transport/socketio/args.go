package socketio

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var errBadPayload = errors.New("invalid payload")

// payload returns the first event argument as an object, or nil.
func payload(args []any) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	m, _ := args[0].(map[string]interface{})
	return m
}

// intField reads a JSON number. Socket.io decodes all numbers as float64.
func intField(m map[string]interface{}, key string) (int, bool) {
	v, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok && v != ""
}

func boolField(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// stringsField reads an array of strings, failing on any other element type.
func stringsField(m map[string]interface{}, key string) ([]string, error) {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", errBadPayload, key)
	}
	out := lo.FilterMap(raw, func(v interface{}, _ int) (string, bool) {
		s, ok := v.(string)
		return s, ok
	})
	if len(out) != len(raw) {
		return nil, fmt.Errorf("%w: %s must contain strings", errBadPayload, key)
	}
	return out, nil
}

// numberArg accepts a bare number or {value: number}.
func numberArg(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case float64:
		return v, true
	case map[string]interface{}:
		f, ok := v["value"].(float64)
		return f, ok
	}
	return 0, false
}

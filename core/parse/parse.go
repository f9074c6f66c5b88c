// Package parse converts model-supplied strings into strongly-typed Go
// values. Chat models frequently emit slightly malformed JSON (single quotes,
// trailing commas, unquoted keys), so complex types go through a
// repair-and-retry path backed by the jsonrepair library.
package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs attempts to parse a string into the specified type T.
// For primitive types (string, bool, int, float) it performs direct
// conversion. For complex types (structs, maps, slices) it attempts JSON
// unmarshaling; if that fails the content is repaired with jsonrepair and
// unmarshaling is retried once.
//
// Example:
//
//	// Parse an invalid JSON string (will be auto-repaired)
//	input, err := parse.ParseStringAs[AddNodeInput](`{kind: 'wallet', id: "w1"}`)
func ParseStringAs[T any](content string) (T, error) {
	var result T

	switch reflect.TypeFor[T]().Kind() {
	case reflect.String:
		reflect.ValueOf(&result).Elem().SetString(content)
		return result, nil

	case reflect.Bool:
		val, err := strconv.ParseBool(content)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetBool(val)
		return result, nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetFloat(val)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(content, 10, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetInt(val)
		return result, nil

	default:
		return parseJSONAs[T](content)
	}
}

// parseJSONAs unmarshals content into T, repairing the JSON and retrying once
// when the first attempt fails.
func parseJSONAs[T any](content string) (T, error) {
	var result T

	// An empty argument string means "no arguments"; treat it as {}.
	if content == "" {
		content = "{}"
	}

	firstErr := json.Unmarshal([]byte(content), &result)
	if firstErr == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to parse JSON (repair also failed: %v): %w", repairErr, firstErr)
	}

	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to parse repaired JSON: %w", err)
	}

	return result, nil
}

package mcp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// stringArg returns an optional string argument.
func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewInvalidArgument(name, fmt.Sprintf("expected string, got %T", v))
	}
	return s, nil
}

// requiredString returns a string argument that must be present and
// non-blank.
func requiredString(args map[string]interface{}, name string) (string, error) {
	s, err := stringArg(args, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", errors.NewInvalidArgument(name, "must not be empty")
	}
	return s, nil
}

// intArg returns an optional non-negative integer argument. JSON numbers
// arrive as float64; numeric strings are accepted too.
func intArg(args map[string]interface{}, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}

	var n int
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewInvalidArgument(name, "must be an integer")
		}
		n = int(x)
	case int:
		n = x
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, errors.NewInvalidArgument(name, "must be an integer")
		}
		n = parsed
	default:
		return 0, errors.NewInvalidArgument(name, fmt.Sprintf("expected integer, got %T", v))
	}
	if n < 0 {
		return 0, errors.NewInvalidArgument(name, "must not be negative")
	}
	return n, nil
}

// stringListArg returns an array-of-strings argument. A single string is
// accepted as a one-element list.
func stringListArg(args map[string]interface{}, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, errors.NewInvalidArgument(name, "expected an array of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.NewInvalidArgument(name, fmt.Sprintf("expected array, got %T", v))
	}
}

// projectsArg reads "projects", falling back to "project". An explicitly
// empty project is passed through so the facade rejects it; an absent one
// yields nil and the configured default applies.
func projectsArg(args map[string]interface{}) ([]string, error) {
	projects, err := stringListArg(args, "projects")
	if err != nil || len(projects) > 0 {
		return projects, err
	}
	if _, ok := args["project"]; !ok {
		return nil, nil
	}
	p, err := stringArg(args, "project")
	if err != nil {
		return nil, err
	}
	return []string{p}, nil
}

// Package shared
package shared

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ExtractBearerToken pulls the bearer credential from the Authorization
// header.
func ExtractBearerToken(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrBadRequest
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrBadRequest
	}

	return parts[1], nil
}

// GetString returns m[key] when it holds a string, "" otherwise.
func GetString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

// GetMap returns m[key] when it holds a JSON object, nil otherwise.
func GetMap(m map[string]any, key string) map[string]any {
	if val, ok := m[key].(map[string]any); ok {
		return val
	}
	return nil
}

// GetSlice returns m[key] when it holds a JSON array, nil otherwise.
func GetSlice(m map[string]any, key string) []any {
	if val, ok := m[key].([]any); ok {
		return val
	}
	return nil
}

// GetFirstMap returns the first element of arr when it is a JSON object.
func GetFirstMap(arr []any) map[string]any {
	if len(arr) > 0 {
		if m, ok := arr[0].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// Package utils provides request validation shared by the API and the tool
// providers. Every validation error wraps types.ErrInvalidParams.
package utils

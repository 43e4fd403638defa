// Package httpx holds the small request-side helpers shared by every API
// handler: strict JSON body decoding, validation error shaping, and paging
// query parameters.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DecodeJSON reads exactly one JSON object from body. Unknown fields and
// trailing content are rejected.
func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// ValidationDetails flattens validator errors into the field->tag map carried
// in the error envelope's details.
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// ParseLimitOffset reads the limit/offset paging parameters used by the list
// endpoints. limit is clamped to maxLimit; a zero or negative limit is an
// error rather than "no limit".
func ParseLimitOffset(values url.Values, defaultLimit, maxLimit int64) (int64, int64, error) {
	limit, err := pagingValue(values.Get("limit"), defaultLimit, 1)
	if err != nil {
		return 0, 0, errors.New("invalid limit")
	}
	offset, err := pagingValue(values.Get("offset"), 0, 0)
	if err != nil {
		return 0, 0, errors.New("invalid offset")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, offset, nil
}

func pagingValue(raw string, fallback, min int64) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < min {
		return 0, errors.New("out of range")
	}
	return parsed, nil
}

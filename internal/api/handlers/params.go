package handlers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// queryReader parses typed query parameters and keeps the first failure
type queryReader struct {
	values url.Values
	err    error
}

func newQueryReader(values url.Values) *queryReader {
	return &queryReader{values: values}
}

func (q *queryReader) fail(name, want string) {
	if q.err == nil {
		q.err = apperrors.NewValidationError(fmt.Sprintf("%s must be %s", name, want))
	}
}

func (q *queryReader) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *queryReader) has(name string) bool {
	return q.str(name) != ""
}

func (q *queryReader) int(name string) int {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "an integer")
		return 0
	}
	return n
}

func (q *queryReader) intPtr(name string) *int {
	if !q.has(name) {
		return nil
	}
	n := q.int(name)
	return &n
}

func (q *queryReader) float(name string) *float64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		q.fail(name, "a finite number")
		return nil
	}
	return &f
}

func (q *queryReader) bool(name string) bool {
	raw := q.str(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "true or false")
		return false
	}
	return b
}

// list accepts repeated parameters and comma separated values, dropping blanks
func (q *queryReader) list(name string) []string {
	var out []string
	for _, raw := range q.values[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q *queryReader) Err() error {
	return q.err
}

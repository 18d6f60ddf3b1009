package servicetitan

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Query is an immutable set of query parameters. Every With* method returns
// a copy, so a Query handed to a paginating call is never modified.
type Query struct {
	values url.Values
}

// NewQuery creates an empty Query.
func NewQuery() Query {
	return Query{}
}

// QueryFrom copies a plain map into a Query.
func QueryFrom(params map[string]string) Query {
	query := Query{values: url.Values{}}
	for key, value := range params {
		query.values.Set(key, value)
	}

	return query
}

// With returns a copy with key set to value. Booleans render as
// "true"/"false" and times in the API's UTC layout.
func (q Query) With(key string, value interface{}) Query {
	next := q.clone()
	next.values.Set(key, formatQueryValue(value))

	return next
}

// Without returns a copy with key removed.
func (q Query) Without(key string) Query {
	next := q.clone()
	next.values.Del(key)

	return next
}

// WithPage sets the page number.
func (q Query) WithPage(page int) Query {
	return q.With("page", page)
}

// WithPageSize sets the page size.
func (q Query) WithPageSize(size int) Query {
	return q.With("pageSize", size)
}

// Get returns the value of key or "".
func (q Query) Get(key string) string {
	return q.values.Get(key)
}

// Has reports whether key is set.
func (q Query) Has(key string) bool {
	return q.values.Has(key)
}

// ToValues returns a copy of the parameters as url.Values.
func (q Query) ToValues() url.Values {
	return q.clone().values
}

// Len returns the number of distinct keys.
func (q Query) Len() int {
	return len(q.values)
}

func (q Query) clone() Query {
	values := make(url.Values, len(q.values)+1)
	for key, list := range q.values {
		values[key] = append([]string(nil), list...)
	}

	return Query{values: values}
}

func formatQueryValue(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case time.Time:
		return typed.UTC().Format(APITimeLayout)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(value)
	}
}

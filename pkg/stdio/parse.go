package stdio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseFunc converts one line (without its newline) into a value.
type ParseFunc[T any] func(line string) (T, error)

// FormatFunc converts a value into one line of text.
type FormatFunc[T any] func(v T) string

// Parse is the default parser. Scalars are read with strconv after trimming
// whitespace; strings are taken verbatim; anything else is decoded as JSON.
func Parse[T any](line string) (T, error) {
	var v T
	var err error
	s := strings.TrimSpace(line)

	switch p := any(&v).(type) {
	case *string:
		*p = line
	case *[]byte:
		*p = []byte(line)
	case *bool:
		*p, err = strconv.ParseBool(s)
	case *int:
		*p, err = strconv.Atoi(s)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *int32:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		*p = int32(n)
	case *uint64:
		*p, err = strconv.ParseUint(s, 10, 64)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	case *float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		*p = float32(f)
	default:
		if s == "" {
			return v, fmt.Errorf("empty line")
		}
		err = json.Unmarshal([]byte(s), &v)
	}
	return v, err
}

// Format is the default formatter. Floats use the shortest exact representation.
func Format[T any](v T) string {
	switch x := any(v).(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case fmt.Stringer:
		return x.String()
	case int, int64, int32, uint64, bool:
		return fmt.Sprint(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

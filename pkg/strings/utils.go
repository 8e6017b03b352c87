package strings

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func ParseTypedValue[T any](value string) (T, error) {
	var v any
	var err error
	var blank T
	switch any(blank).(type) {
	case bool:
		v, err = strconv.ParseBool(value)
	case int:
		v, err = strconv.Atoi(value)
	case uint:
		var u uint64
		u, err = strconv.ParseUint(value, 10, 64)
		v = uint(u)
	case float64:
		v, err = strconv.ParseFloat(value, 64)
	case string:
		v, err = value, nil
	case time.Time:
		v, err = parseTime(value)
	case time.Duration:
		v, err = time.ParseDuration(value)
	case uuid.UUID:
		v, err = uuid.Parse(value)
	default:
		return blank, fmt.Errorf("unsupported value type %T", blank)
	}

	if err != nil {
		return blank, fmt.Errorf("failed to convert to type %T: %w", blank, err)
	}
	return v.(T), nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}

	unixTime, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.New("RFC3339, RFC3339Nano or Unix time expected")
	}
	if unixTime < 0 {
		return time.Time{}, errors.New("got negative seconds value")
	}

	return time.Unix(unixTime, 0), nil
}

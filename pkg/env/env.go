package env

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgstrings "github.com/klwxsrx/go-throttle/pkg/strings"
)

type availableTypes interface {
	bool | int | uint | float64 | string | time.Time | time.Duration | uuid.UUID
}

func Must[T any](val T, err error) T {
	if err != nil {
		panic(fmt.Errorf("failed to parse environment: %w", err))
	}
	return val
}

func Parse[T availableTypes](key string) (T, error) {
	var result T
	str, ok := os.LookupEnv(key)
	if !ok {
		return result, notFoundError(key, result)
	}

	result, err := pkgstrings.ParseTypedValue[T](str)
	if err != nil {
		return result, invalidValueError(key, result)
	}
	return result, nil
}

// ParseOptional returns nil when the variable is not set.
func ParseOptional[T availableTypes](key string) (*T, error) {
	if _, ok := os.LookupEnv(key); !ok {
		return nil, nil
	}

	result, err := Parse[T](key)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Override replaces target with the variable when it is set.
func Override[T availableTypes](target *T, key string) error {
	value, err := ParseOptional[T](key)
	if err != nil {
		return err
	}
	if value != nil {
		*target = *value
	}
	return nil
}

func ParseList[T availableTypes](key string, delimiter string) ([]T, error) {
	str, ok := os.LookupEnv(key)
	if !ok {
		return nil, fmt.Errorf("env %s with type list not found", key)
	}

	strList := strings.Split(str, delimiter)
	resultList := make([]T, 0, len(strList))
	for _, str := range strList {
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}
		t, err := pkgstrings.ParseTypedValue[T](str)
		if err != nil {
			return nil, fmt.Errorf("env %s with type list has invalid value", key)
		}
		resultList = append(resultList, t)
	}

	return resultList, nil
}

// Key builds an environment key from parts: Key("throttle", "qid-test-000", "rate") = "THROTTLE_QID_TEST_000_RATE".
func Key(parts ...string) string {
	converted := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		converted = append(converted, pkgstrings.ToScreamingSnakeCase(part))
	}
	return strings.Join(converted, "_")
}

func notFoundError(key string, value any) error {
	return fmt.Errorf("env %s with type %T not found", key, value)
}

func invalidValueError(key string, value any) error {
	return fmt.Errorf("env %s with type %T has invalid value", key, value)
}

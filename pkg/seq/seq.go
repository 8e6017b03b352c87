package seq

import "golang.org/x/exp/constraints"

type (
	Number interface {
		constraints.Integer | constraints.Float
	}

	Identifiable interface {
		GetID() string
	}
)

func Sum[N Number](numbers []N) N {
	var result N
	for _, n := range numbers {
		result += n
	}

	return result
}

func Pluck[R, V any](records []R, field func(R) V) []V {
	result := make([]V, 0, len(records))
	for _, record := range records {
		result = append(result, field(record))
	}

	return result
}

// FindByID returns the last record carrying id.
func FindByID[R Identifiable](id string, records []R) (R, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].GetID() == id {
			return records[i], true
		}
	}

	var empty R
	return empty, false
}

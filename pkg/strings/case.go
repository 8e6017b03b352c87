package strings

import "github.com/iancoleman/strcase"

func ToSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

// ToScreamingSnakeCase turns "qid-test-000" into "QID_TEST_000".
func ToScreamingSnakeCase(s string) string {
	return strcase.ToScreamingSnake(s)
}

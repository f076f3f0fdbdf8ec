package sim

import (
	"fmt"
	"log"
	"strings"
	"unicode"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A valid name is a dot-separated hierarchy such as "Bench.RegFile", where
// every level is non-empty and starts with an upper case letter.
func NameMustBeValid(name string) {
	if err := checkName(name); err != nil {
		log.Panicf("name %q is not valid: %s", name, err)
	}
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			return fmt.Errorf("empty level")
		}

		first := []rune(token)[0]
		if !unicode.IsUpper(first) {
			return fmt.Errorf("level %q must start with a capital letter", token)
		}

		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return fmt.Errorf("level %q has invalid character %q", token, r)
			}
		}
	}

	return nil
}

package sim

import (
	"log"
	"strings"
)

// NameMustBeValid panics if the name is not a dot-separated list of
// non-empty elements, such as "Node[2].L1".
func NameMustBeValid(name string) {
	if name == "" {
		log.Panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			log.Panicf("name %q has an empty element", name)
		}

		if strings.Count(token, "[") != strings.Count(token, "]") {
			log.Panicf("name %q has unmatched brackets", name)
		}
	}
}

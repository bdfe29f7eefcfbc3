package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references in a config document. Every
// referenced variable must be set; "$$" is a literal dollar sign.
func expandEnv(data []byte) ([]byte, error) {
	const dollar = "\x00MODELBAKE_DOLLAR\x00"
	s := strings.ReplaceAll(string(data), "$$", dollar)

	var unset []string
	for _, m := range envRef.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(unset, m[1]) {
			unset = append(unset, m[1])
		}
	}
	if len(unset) > 0 {
		slices.Sort(unset)
		return nil, fmt.Errorf("%w: %s", ErrUnsetEnv, strings.Join(unset, ", "))
	}

	s = envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
	return []byte(strings.ReplaceAll(s, dollar, "$")), nil
}

package env

import (
	"os"
	"strings"
)

// Prefix namespaces variables owned by this service.
const Prefix = "GUDANG_"

// Get looks up GUDANG_<key> first and then the bare key, so platform
// provided variables such as PORT still apply. Blank values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}

package cache

import "strings"

// GenerateKey joins a prefix and an id. A prefix that already ends in ':'
// is used as is.
func GenerateKey(prefix string, id string) string {
	if prefix == "" {
		return id
	}
	if strings.HasSuffix(prefix, ":") {
		return prefix + id
	}
	return prefix + ":" + id
}

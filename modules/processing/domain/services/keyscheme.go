package services

import "strings"

const r2Scheme = "r2://"

// StripScheme removes a caller-supplied "r2://" prefix from an object key,
// if present. Persisted fields are always bare keys (no scheme); this is
// the single place that un-does the scheme duality the source mixed
// throughout its call sites.
func StripScheme(key string) string {
	return strings.TrimPrefix(key, r2Scheme)
}

// ToPresentationURL reattaches a presentation-time scheme/host to a bare
// key. It is a presentation concern only: nothing that persists state may
// call this before storing a value.
func ToPresentationURL(endpoint, key string) string {
	key = StripScheme(key)
	endpoint = strings.TrimSuffix(endpoint, "/")
	return endpoint + "/" + key
}

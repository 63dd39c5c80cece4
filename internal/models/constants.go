package models

// Provider tags, derived from the feed URL's path prefix during ingest.
const (
	ProviderUSA = "usa"
	ProviderSky = "sky"
)

// ProviderOrDefault normalizes an externally supplied provider segment.
// Anything that is not the USA provider falls back to Sky, matching how
// feeds are classified on ingest.
func ProviderOrDefault(s string) string {
	if s == ProviderUSA {
		return ProviderUSA
	}
	return ProviderSky
}

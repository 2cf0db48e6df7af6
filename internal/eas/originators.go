package eas

// originatorNames maps the closed set of SAME originator codes to display
// names. The header grammar rejects anything outside this set, so lookups
// here cannot miss; the fallback exists for callers holding codes from
// elsewhere.
var originatorNames = map[string]string{
	"EAS": "Broadcast Station or Cable System",
	"CIV": "Civil Authorities",
	"WXR": "National Weather Service",
	"PEP": "Primary Entry Point System",
}

// OriginatorName returns the display name for a SAME originator code.
func OriginatorName(code string) string {
	if name, ok := originatorNames[code]; ok {
		return name
	}
	return "Unknown"
}

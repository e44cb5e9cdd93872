package sources

import "strings"

// DefaultMaxImages bounds downstream media cost per vehicle.
const DefaultMaxImages = 15

// Substrings that mark obvious non-vehicle assets on dealer templates.
var imageBlocklist = []string{
	"logo",
	"icon",
	"favicon",
	"sprite",
	"badge",
	"banner",
	"placeholder",
	"avatar",
	"facebook",
	"twitter",
	"instagram",
	"youtube",
	"linkedin",
	"carfax",
	".svg",
	".gif",
}

// FilterImages drops non-vehicle assets and empty entries, de-duplicates
// while preserving order, and caps the result at max (DefaultMaxImages
// when max <= 0).
func FilterImages(urls []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxImages
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		lower := strings.ToLower(u)
		blocked := false
		for _, frag := range imageBlocklist {
			if strings.Contains(lower, frag) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == max {
			break
		}
	}
	return out
}

package detect

import (
	"regexp"
	"strconv"
	"strings"
)

// Generic patterns are tried first, in order.
var genericVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)version\s+(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(\d+\.\d+)`),
}

// Tool-specific shapes the generic patterns miss, such as "v24" or
// "Python 3" with a single numeric component.
var overrideVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^v(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`Python\s+(\d[\w.\-+]*)`),
	regexp.MustCompile(`git version\s+(\d[\w.\-+]*)`),
	regexp.MustCompile(`Docker version\s+(\d[\w.\-+]*)`),
}

// ExtractVersion pulls a version string out of raw --version output.
//
// The second return value reports whether a pattern matched. When none
// does, the first line of the trimmed output is returned as-is with false;
// callers decide whether that best-effort value is usable.
func ExtractVersion(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	for _, re := range genericVersionPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1], true
		}
	}
	for _, re := range overrideVersionPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1], true
		}
	}
	return firstLine(text), false
}

// extractWithPattern applies a rule-supplied pattern before the generic
// chain. The pattern's first capture group is the version; without a
// group the whole match is used.
func extractWithPattern(re *regexp.Regexp, raw string) (string, bool) {
	if re != nil {
		if m := re.FindStringSubmatch(raw); m != nil {
			if len(m) > 1 && m[1] != "" {
				return m[1], true
			}
			return m[0], true
		}
	}
	return ExtractVersion(raw)
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// MeetsMinimum compares dotted numeric versions part by part. An empty
// minimum is always met; an empty version never meets a non-empty one.
func MeetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	if version == "" {
		return false
	}

	vParts := numericParts(version)
	mParts := numericParts(minimum)
	for len(vParts) < len(mParts) {
		vParts = append(vParts, 0)
	}
	for len(mParts) < len(vParts) {
		mParts = append(mParts, 0)
	}
	for i := range vParts {
		if vParts[i] > mParts[i] {
			return true
		}
		if vParts[i] < mParts[i] {
			return false
		}
	}
	return true
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	flush := func() {
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return parts
}

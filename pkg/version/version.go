// Package version compares Arch Linux package versions.
//
// Versions follow the [epoch:]version[-release] shape and segments compare
// the way pacman's vercmp does: numeric runs compare numerically, alphabetic
// runs lexically, and numeric runs always sort newer than alphabetic ones.
package version

import (
	"strings"
)

// Compare returns -1 if a is older than b, 0 if they are equal, and 1 if a
// is newer than b.
func Compare(a, b string) int {
	ae, av, ar := split(a)
	be, bv, br := split(b)

	if c := compareSegments(ae, be); c != 0 {
		return c
	}
	if c := compareSegments(av, bv); c != 0 {
		return c
	}
	// A missing release matches any release.
	if ar == "" || br == "" {
		return 0
	}
	return compareSegments(ar, br)
}

// NeedsUpdate reports whether installed is older than candidate.
func NeedsUpdate(installed, candidate string) bool {
	return Compare(installed, candidate) < 0
}

// split breaks a full version string into epoch, version, and release.
// Missing epoch defaults to "0"; missing release is empty.
func split(full string) (epoch, version, release string) {
	epoch = "0"
	if i := strings.IndexByte(full, ':'); i >= 0 {
		epoch, full = full[:i], full[i+1:]
	}
	if i := strings.LastIndexByte(full, '-'); i >= 0 {
		return epoch, full[:i], full[i+1:]
	}
	return epoch, full, ""
}

// compareSegments implements alpm-style comparison of one version component.
func compareSegments(a, b string) int {
	for a != "" || b != "" {
		var as, bs string
		var anum, bnum bool
		as, anum, a = nextRun(a)
		bs, bnum, b = nextRun(b)

		switch {
		case as == "" && bs == "":
			return 0
		case as == "":
			// b has an extra segment; numeric extras sort newer,
			// alphabetic extras (e.g. "1.0rc") sort older.
			if bnum {
				return -1
			}
			return 1
		case bs == "":
			if anum {
				return 1
			}
			return -1
		case anum && !bnum:
			return 1
		case !anum && bnum:
			return -1
		case anum:
			if c := compareNumeric(as, bs); c != 0 {
				return c
			}
		default:
			if c := strings.Compare(as, bs); c != 0 {
				return c
			}
		}
	}
	return 0
}

// nextRun peels the leading run of digits or letters from s, skipping any
// separator characters first. Returns the run, whether it was numeric, and
// the remainder.
func nextRun(s string) (run string, numeric bool, rest string) {
	i := 0
	for i < len(s) && !isAlnum(s[i]) {
		i++
	}
	s = s[i:]
	if s == "" {
		return "", false, ""
	}

	numeric = isDigit(s[0])
	j := 0
	for j < len(s) && isDigit(s[j]) == numeric && isAlnum(s[j]) {
		j++
	}
	return s[:j], numeric, s[j:]
}

// compareNumeric compares two digit strings without overflow concerns.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

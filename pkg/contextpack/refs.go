package contextpack

import (
	"regexp"
	"strings"
)

var (
	quotedRefPattern   = regexp.MustCompile("[\"'`]([^\"'`\\s]+)[\"'`]")
	dotSlashRefPattern = regexp.MustCompile(`(?:^|\s)(\./[^\s"'` + "`" + `]+)`)
	bareRefPattern     = regexp.MustCompile(`(?:^|\s)([\w./-]+/[\w.-]+\.[A-Za-z0-9]{1,6})\b`)
)

// ExtractFileRefs recognizes file references in task text: quoted paths,
// backtick-quoted paths, ./-prefixed paths, and bare path-like tokens with a
// directory separator and a short extension. Order of first appearance is
// preserved; duplicates are dropped.
func ExtractFileRefs(task string) []string {
	type hit struct {
		pos  int
		path string
	}
	var hits []hit

	collect := func(re *regexp.Regexp, pathLike bool) {
		for _, m := range re.FindAllStringSubmatchIndex(task, -1) {
			start, end := m[2], m[3]
			candidate := task[start:end]
			if pathLike && !looksLikePath(candidate) {
				continue
			}
			hits = append(hits, hit{pos: start, path: candidate})
		}
	}

	collect(quotedRefPattern, true)
	collect(dotSlashRefPattern, false)
	collect(bareRefPattern, false)

	// Order by first appearance in the task text.
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].pos < hits[i].pos {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}

	var refs []string
	seen := make(map[string]bool)
	for _, h := range hits {
		path := strings.TrimPrefix(h.path, "./")
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		refs = append(refs, path)
	}
	return refs
}

// looksLikePath reports whether a quoted token is plausibly a file path:
// it needs a directory separator or a short extension.
func looksLikePath(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Contains(s, "/") {
		return true
	}
	dot := strings.LastIndex(s, ".")
	if dot <= 0 || dot == len(s)-1 {
		return false
	}
	ext := s[dot+1:]
	if len(ext) > 6 {
		return false
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

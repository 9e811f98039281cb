package ratelimit

import "strings"

// Match returns the first rule whose path and method match, or nil.
// Exact paths are preferred over prefix rules.
func Match(path, method string, rules []Rule) *Rule {
	for i := range rules {
		r := &rules[i]
		if methodMatches(r.Method, method) && !strings.HasSuffix(r.Path, "*") && r.Path == path {
			return r
		}
	}
	for i := range rules {
		r := &rules[i]
		prefix, ok := strings.CutSuffix(r.Path, "*")
		if ok && methodMatches(r.Method, method) && strings.HasPrefix(path, prefix) {
			return r
		}
	}
	return nil
}

func methodMatches(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

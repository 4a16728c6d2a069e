package domain

import (
	"net/url"
	"strings"
)

// RequestClass is the derived, stateless classification of an inbound
// request. It is computed purely from URL/host/path matching.
type RequestClass string

const (
	// ClassShell marks an application-shell resource.
	ClassShell RequestClass = "shell-asset"
	// ClassExternal marks a vendored external-library resource.
	ClassExternal RequestClass = "external-library-asset"
	// ClassTile marks a map-tile resource.
	ClassTile RequestClass = "tile-asset"
	// ClassAPI marks a geocoding or other API call.
	ClassAPI RequestClass = "api-call"
	// ClassOther is the fallthrough class.
	ClassOther RequestClass = "other"
)

// Matcher is one ordered classification predicate. Matchers are evaluated
// first-match-wins, so their order is part of the classification contract.
type Matcher interface {
	Class() RequestClass
	Match(u *url.URL) bool
}

// PathMatcher matches root-relative request paths against a fixed set.
type PathMatcher struct {
	class RequestClass
	paths map[string]struct{}
}

// NewPathMatcher builds an exact-path matcher for the given class.
func NewPathMatcher(class RequestClass, paths []string) *PathMatcher {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return &PathMatcher{class: class, paths: set}
}

// Class implements Matcher.
func (m *PathMatcher) Class() RequestClass { return m.class }

// Match implements Matcher.
func (m *PathMatcher) Match(u *url.URL) bool {
	if u == nil {
		return false
	}
	_, ok := m.paths[u.Path]
	return ok
}

// URLMatcher matches the full request URL against a set of known absolute
// URLs, ignoring query strings.
type URLMatcher struct {
	class RequestClass
	urls  map[string]struct{}
}

// NewURLMatcher builds an absolute-URL matcher for the given class.
func NewURLMatcher(class RequestClass, urls []string) *URLMatcher {
	set := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		if u, err := url.Parse(raw); err == nil {
			set[stripQuery(u)] = struct{}{}
		}
	}
	return &URLMatcher{class: class, urls: set}
}

// Class implements Matcher.
func (m *URLMatcher) Class() RequestClass { return m.class }

// Match implements Matcher.
func (m *URLMatcher) Match(u *url.URL) bool {
	if u == nil {
		return false
	}
	_, ok := m.urls[stripQuery(u)]
	return ok
}

// HostPathTokenMatcher matches when any token appears in the host or path.
type HostPathTokenMatcher struct {
	class  RequestClass
	tokens []string
}

// NewHostPathTokenMatcher builds a host-or-path token matcher.
func NewHostPathTokenMatcher(class RequestClass, tokens []string) *HostPathTokenMatcher {
	return &HostPathTokenMatcher{class: class, tokens: normalizeTokens(tokens)}
}

// Class implements Matcher.
func (m *HostPathTokenMatcher) Class() RequestClass { return m.class }

// Match implements Matcher.
func (m *HostPathTokenMatcher) Match(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)
	for _, token := range m.tokens {
		if strings.Contains(host, token) || strings.Contains(path, token) {
			return true
		}
	}
	return false
}

// HostTokenMatcher matches when any token appears in the host.
type HostTokenMatcher struct {
	class  RequestClass
	tokens []string
}

// NewHostTokenMatcher builds a host token matcher.
func NewHostTokenMatcher(class RequestClass, tokens []string) *HostTokenMatcher {
	return &HostTokenMatcher{class: class, tokens: normalizeTokens(tokens)}
}

// Class implements Matcher.
func (m *HostTokenMatcher) Class() RequestClass { return m.class }

// Match implements Matcher.
func (m *HostTokenMatcher) Match(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, token := range m.tokens {
		if strings.Contains(host, token) {
			return true
		}
	}
	return false
}

// Classifier evaluates an ordered matcher list, first-match-wins, falling
// through to ClassOther.
type Classifier struct {
	matchers []Matcher
}

// NewClassifier derives the standard matcher order from a manifest:
// shell paths, external URLs, tile tokens, API host tokens.
func NewClassifier(m Manifest) *Classifier {
	return &Classifier{matchers: []Matcher{
		NewPathMatcher(ClassShell, m.Shell),
		NewURLMatcher(ClassExternal, m.External),
		NewHostPathTokenMatcher(ClassTile, m.TileTokens),
		NewHostTokenMatcher(ClassAPI, m.APITokens),
	}}
}

// Classify returns the request class for a URL.
func (c *Classifier) Classify(u *url.URL) RequestClass {
	for _, m := range c.matchers {
		if m.Match(u) {
			return m.Class()
		}
	}
	return ClassOther
}

func stripQuery(u *url.URL) string {
	clone := *u
	clone.RawQuery = ""
	clone.Fragment = ""
	return clone.String()
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

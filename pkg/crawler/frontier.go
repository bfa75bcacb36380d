package crawler

import "net/url"

// Target is a URL waiting to be crawled at a given link depth.
type Target struct {
	URL   string
	Depth int
}

// Frontier is the depth-first worklist of a single crawl together with its
// visited set. It is owned by one crawl and is not safe for concurrent use.
type Frontier struct {
	stack   []Target
	visited map[string]struct{}
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{visited: make(map[string]struct{})}
}

// Push adds t to the top of the stack. Visited filtering happens at Visit
// time so pushes never reorder the traversal.
func (f *Frontier) Push(t Target) {
	f.stack = append(f.stack, t)
}

// PushLinks pushes links at depth so that the first link is popped first.
func (f *Frontier) PushLinks(links []string, depth int) {
	for i := len(links) - 1; i >= 0; i-- {
		f.Push(Target{URL: links[i], Depth: depth})
	}
}

// Pop removes and returns the most recently pushed target.
func (f *Frontier) Pop() (Target, bool) {
	if len(f.stack) == 0 {
		return Target{}, false
	}
	t := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return t, true
}

// Visit marks rawURL as visited and reports whether it was new.
// Unparseable URLs are never visited.
func (f *Frontier) Visit(rawURL string) bool {
	key := normalizeURL(rawURL)
	if key == "" {
		return false
	}
	if _, seen := f.visited[key]; seen {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// Len returns the number of pending targets.
func (f *Frontier) Len() int {
	return len(f.stack)
}

// normalizeURL returns the visited-set key for rawURL.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""

	// Remove trailing slash from path (unless it's just "/")
	if len(parsed.Path) > 1 && parsed.Path[len(parsed.Path)-1] == '/' {
		parsed.Path = parsed.Path[:len(parsed.Path)-1]
		parsed.RawPath = ""
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String()
}

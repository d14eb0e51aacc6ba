package bridge

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled route path pattern.
//
// Two syntaxes are accepted. Templates start with "/" and may contain
// placeholders: {name} matches one path segment, {name:regex} matches the
// given expression and {name...} matches the rest of the path. Regex
// patterns start with "^" or end with "$" and are matched as written, with
// named groups becoming path parameters.
type Pattern struct {
	raw      string
	re       *regexp.Regexp
	params   []string
	depth    int
	literals int
	anchored bool
}

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CompilePattern compiles raw into a Pattern.
func CompilePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if strings.HasPrefix(raw, "^") || strings.HasSuffix(raw, "$") {
		return compileRegex(raw)
	}
	if raw[0] != '/' {
		return nil, fmt.Errorf("%w: %q must start with / or ^", ErrInvalidPattern, raw)
	}
	return compileTemplate(raw)
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(raw string) *Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func compileRegex(raw string) (*Pattern, error) {
	expr := raw
	anchored := false
	if !strings.HasPrefix(expr, "^") {
		expr = "^" + expr
		anchored = true
	}
	if !strings.HasSuffix(expr, "$") {
		expr += "$"
		anchored = true
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
	}

	var params []string
	seen := map[string]bool{}
	for _, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, raw, name)
		}
		seen[name] = true
		params = append(params, name)
	}

	literals := 0
	body := strings.TrimSuffix(strings.TrimPrefix(expr, "^"), "$")
	for seg := range strings.SplitSeq(body, "/") {
		if seg != "" && regexp.QuoteMeta(seg) == seg {
			literals++
		}
	}

	return &Pattern{
		raw:      raw,
		re:       re,
		params:   params,
		depth:    strings.Count(raw, "/"),
		literals: literals,
		anchored: anchored,
	}, nil
}

func compileTemplate(raw string) (*Pattern, error) {
	var (
		expr     strings.Builder
		params   []string
		seen     = map[string]bool{}
		literals int
	)
	expr.WriteByte('^')

	for seg := range strings.SplitSeq(raw[1:], "/") {
		expr.WriteByte('/')
		if !strings.Contains(seg, "{") {
			if strings.Contains(seg, "}") {
				return nil, fmt.Errorf("%w: %q: unmatched }", ErrInvalidPattern, raw)
			}
			if seg != "" {
				literals++
			}
			expr.WriteString(regexp.QuoteMeta(seg))
			continue
		}
		names, err := compileSegment(&expr, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
		}
		for _, name := range names {
			if seen[name] {
				return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, raw, name)
			}
			seen[name] = true
			params = append(params, name)
		}
	}
	expr.WriteByte('$')

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
	}
	if i := strings.Index(raw, "...}"); i >= 0 && i+4 != len(raw) {
		return nil, fmt.Errorf("%w: %q: wildcard must be last", ErrInvalidPattern, raw)
	}

	return &Pattern{
		raw:      raw,
		re:       re,
		params:   params,
		depth:    strings.Count(raw, "/"),
		literals: literals,
	}, nil
}

// compileSegment writes the expression for one segment containing
// placeholders and returns the parameter names it declares.
func compileSegment(expr *strings.Builder, seg string) ([]string, error) {
	var names []string
	for seg != "" {
		open := strings.IndexByte(seg, '{')
		if open < 0 {
			if strings.Contains(seg, "}") {
				return nil, fmt.Errorf("unmatched }")
			}
			expr.WriteString(regexp.QuoteMeta(seg))
			break
		}
		expr.WriteString(regexp.QuoteMeta(seg[:open]))

		// Find the matching brace; constraints may contain {n,m} quantifiers.
		depth, end := 0, -1
		for j := open; j < len(seg); j++ {
			switch seg[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("unclosed {")
		}

		name, constraint, hasConstraint := strings.Cut(seg[open+1:end], ":")
		switch {
		case strings.HasSuffix(name, "...") && !hasConstraint:
			name = strings.TrimSuffix(name, "...")
			constraint = ".*"
		case !hasConstraint:
			constraint = "[^/]+"
		case constraint == "":
			return nil, fmt.Errorf("empty constraint for %q", name)
		}
		if !paramName.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q", name)
		}
		if _, err := regexp.Compile(constraint); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}

		fmt.Fprintf(expr, "(?P<%s>%s)", name, constraint)
		names = append(names, name)
		seg = seg[end+1:]
	}
	return names, nil
}

// Match reports whether path matches and returns the extracted parameters.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(p.params))
	for i, name := range p.re.SubexpNames() {
		if name != "" && i < len(m) {
			params[name] = m[i]
		}
	}
	return params, true
}

// String returns the pattern as registered.
func (p *Pattern) String() string { return p.raw }

// Params returns the declared parameter names in order.
func (p *Pattern) Params() []string { return append([]string(nil), p.params...) }

// Depth is the number of '/' characters in the pattern.
func (p *Pattern) Depth() int { return p.depth }

// Anchored reports whether anchors were added to a regex pattern.
func (p *Pattern) Anchored() bool { return p.anchored }

// moreSpecific orders patterns deepest first, then by literal segments.
func moreSpecific(a, b *Pattern) bool {
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.literals > b.literals
}

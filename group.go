package bridge

// Group registers routes under a shared path prefix.
type Group struct {
	parent Registrar
	prefix string
}

// Group creates a route group with the given prefix.
func (b *Builder) Group(prefix string) *Group {
	return &Group{parent: b, prefix: prefix}
}

// Group creates a nested group whose prefix extends g's.
func (g *Group) Group(prefix string) *Group {
	return &Group{parent: g, prefix: prefix}
}

// addRoute implements Registrar for Group. Patterns starting with "^" are
// registered unprefixed.
func (g *Group) addRoute(rt *route) {
	raw := rt.pattern.String()
	if raw[0] == '/' {
		rt.pattern = MustCompilePattern(g.prefix + raw)
	}
	g.parent.addRoute(rt)
}

func (g *Group) handlerEnv() handlerEnv { return g.parent.handlerEnv() }

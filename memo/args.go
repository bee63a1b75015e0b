package memo

// Args carries the arguments of one memoized call. Positional values are
// rendered in order, keyword values sorted by name.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Positional builds Args from positional values only.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// With returns a copy of a with the keyword name set to value.
func (a Args) With(name string, value any) Args {
	keyword := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		keyword[k] = v
	}
	keyword[name] = value
	return Args{Positional: a.Positional, Keyword: keyword}
}

// Arg returns the positional value at i, or nil when out of range.
func (a Args) Arg(i int) any {
	if i < 0 || i >= len(a.Positional) {
		return nil
	}
	return a.Positional[i]
}

// Kwarg returns the keyword value for name.
func (a Args) Kwarg(name string) (any, bool) {
	v, ok := a.Keyword[name]
	return v, ok
}

package utils

import "strings"

func NewPath(s ...string) Path {
	p := Path{}
	p = append(p, s...)
	return p
}

// Path is a dotted access path into a JSON shaped value.
type Path []string

func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return NewPath(strings.Split(s, ".")...)
}

func (p Path) AddString(s ...string) Path {
	np := make(Path, 0, len(p)+len(s))
	np = append(np, p...)
	return append(np, s...)
}

func (p Path) First() (string, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[0], true
}

func (p Path) Next() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[1:]
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Package naming gives simulation elements a name that hooks, reports and the
// monitor can refer to.
package naming

import "strings"

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name of the object.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase. It panics if the name is empty or
// contains whitespace.
func MakeNamedBase(name string) NamedBase {
	MustBeValid(name)

	return NamedBase{name: name}
}

// MustBeValid panics if the name cannot be used to identify an element.
func MustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	if strings.ContainsAny(name, " \t\n") {
		panic("name must not contain whitespace: " + name)
	}
}

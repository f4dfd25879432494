// Package testutil provides shared test doubles for the permtree packages.
package testutil

import "fmt"

// FakeResolver resolves user and group names from fixed maps, so tests
// never depend on the system identity database.
type FakeResolver struct {
	Users  map[string]int
	Groups map[string]int
}

// NewFakeResolver returns a resolver with a small, stable identity set.
func NewFakeResolver() FakeResolver {
	return FakeResolver{
		Users:  map[string]int{"www-data": 33, "app": 1001, "root": 0},
		Groups: map[string]int{"www-data": 33, "app": 1001, "staff": 50, "root": 0},
	}
}

func (r FakeResolver) LookupUser(name string) (int, error) {
	if uid, ok := r.Users[name]; ok {
		return uid, nil
	}
	return 0, fmt.Errorf("user %q not found", name)
}

func (r FakeResolver) LookupGroup(name string) (int, error) {
	if gid, ok := r.Groups[name]; ok {
		return gid, nil
	}
	return 0, fmt.Errorf("group %q not found", name)
}

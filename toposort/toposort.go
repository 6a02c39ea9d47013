// Package toposort orders items so that every item comes after the items it
// depends on.
package toposort

import "github.com/syssam/sharegraph"

// Sort orders nodes so that each one follows all of its dependencies.
// It is SortFunc with the nodes as their own keys.
func Sort[T comparable](nodes []T, deps func(T) []T) ([]T, error) {
	return SortFunc(nodes, deps, func(n T) T { return n })
}

// SortFunc orders nodes so that each one follows all of its dependencies.
// deps reports the keys a node depends on and key derives the key of a node.
//
// The walk is depth first, in input order, and visits every node once, so
// the output is stable for a stable input and dependency order. Dependency
// keys that match no input node are assumed to be satisfied elsewhere and
// are skipped. A cycle stops the sort with a *sharegraph.CycleError holding
// the key that closed it and the keys on the path being visited.
func SortFunc[T any, K comparable](nodes []T, deps func(T) []K, key func(T) K) ([]T, error) {
	s := &sorter[T, K]{
		deps:     deps,
		byKey:    make(map[K]T, len(nodes)),
		visited:  make(map[K]bool, len(nodes)),
		visiting: make(map[K]bool),
		out:      make([]T, 0, len(nodes)),
	}
	keys := make([]K, len(nodes))
	for i, n := range nodes {
		k := key(n)
		keys[i] = k
		if _, ok := s.byKey[k]; !ok {
			s.byKey[k] = n
		}
	}
	for _, k := range keys {
		if err := s.visit(k); err != nil {
			return nil, err
		}
	}
	return s.out, nil
}

type sorter[T any, K comparable] struct {
	deps     func(T) []K
	byKey    map[K]T
	visited  map[K]bool
	visiting map[K]bool
	path     []K
	out      []T
}

func (s *sorter[T, K]) visit(k K) error {
	if s.visited[k] {
		return nil
	}
	if s.visiting[k] {
		return &sharegraph.CycleError{Key: k, Visiting: keysOf(s.path)}
	}
	n, ok := s.byKey[k]
	if !ok {
		return nil
	}
	s.visiting[k] = true
	s.path = append(s.path, k)
	for _, dep := range s.deps(n) {
		if err := s.visit(dep); err != nil {
			return err
		}
	}
	s.path = s.path[:len(s.path)-1]
	delete(s.visiting, k)
	s.visited[k] = true
	s.out = append(s.out, n)
	return nil
}

func keysOf[K any](path []K) []any {
	out := make([]any, len(path))
	for i, k := range path {
		out[i] = k
	}
	return out
}

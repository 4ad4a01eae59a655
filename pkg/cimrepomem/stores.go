/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"golang.org/x/exp/slices"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

// nsStores are the object stores of a single namespace: qualifier
// declarations, classes in resolved form, instances and method callbacks.
// A namespace always owns all four partitions, see namespaces.add and
// namespaces.getOrCreateStores.
type nsStores struct {
	qualifiers *cim.NocaseMap[*cim.QualifierDecl]
	classes    *cim.NocaseMap[*cim.Class]
	instances  *instanceStore
	methods    *cim.NocaseMap[*cim.NocaseMap[cimrepo.MethodCallback]]

	// class names in creation order. Superclasses come ahead of their
	// subclasses since creation requires the superclass to exist.
	compileOrder []string
}

func newNSStores() *nsStores {
	return &nsStores{
		qualifiers: cim.NewNocaseMap[*cim.QualifierDecl](),
		classes:    cim.NewNocaseMap[*cim.Class](),
		instances:  newInstanceStore(),
		methods:    cim.NewNocaseMap[*cim.NocaseMap[cimrepo.MethodCallback]](),
	}
}

// appendCompileOrder records a created class name once, keeping the first
// creation position on overwrite.
func (s *nsStores) appendCompileOrder(className string) {
	f := cim.FoldName(className)
	for _, n := range s.compileOrder {
		if cim.FoldName(n) == f {
			return
		}
	}
	s.compileOrder = append(s.compileOrder, className)
}

func (s *nsStores) removeCompileOrder(className string) {
	f := cim.FoldName(className)
	for i, n := range s.compileOrder {
		if cim.FoldName(n) == f {
			s.compileOrder = slices.Delete(s.compileOrder, i, i+1)
			return
		}
	}
}

// isSubclassOf returns is the stored class a descendant of ancestor.
// Guarded against superclass cycles a backing connection could smuggle in.
func (s *nsStores) isSubclassOf(className, ancestor string) bool {
	target := cim.FoldName(ancestor)
	seen := map[string]bool{}
	cur, ok := s.classes.Get(className)
	for ok {
		if cur.SuperClass == "" {
			return false
		}
		f := cim.FoldName(cur.SuperClass)
		if f == target {
			return true
		}
		if seen[f] {
			return false
		}
		seen[f] = true
		cur, ok = s.classes.Get(cur.SuperClass)
	}
	return false
}

// instanceStore keys instances by the canonical form of their path,
// preserving creation order for enumeration.
type instanceStore struct {
	insts map[string]*cim.Instance
	order []string
}

func newInstanceStore() *instanceStore {
	return &instanceStore{insts: make(map[string]*cim.Instance)}
}

func (s *instanceStore) len() int {
	return len(s.order)
}

func (s *instanceStore) has(p *cim.Path) bool {
	_, ok := s.insts[p.CanonicalKey()]
	return ok
}

func (s *instanceStore) get(p *cim.Path) (*cim.Instance, bool) {
	i, ok := s.insts[p.CanonicalKey()]
	return i, ok
}

// set stores the instance under its path. The instance must carry a path.
func (s *instanceStore) set(inst *cim.Instance) {
	k := inst.Path.CanonicalKey()
	if _, ok := s.insts[k]; !ok {
		s.order = append(s.order, k)
	}
	s.insts[k] = inst
}

func (s *instanceStore) remove(p *cim.Path) bool {
	k := p.CanonicalKey()
	if _, ok := s.insts[k]; !ok {
		return false
	}
	delete(s.insts, k)
	if i := slices.Index(s.order, k); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// enum enumerates stored instances in creation order.
func (s *instanceStore) enum(cb func(inst *cim.Instance)) {
	for _, k := range s.order {
		cb(s.insts[k])
	}
}

/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"
)

// FoldName returns the canonical caseless form of a CIM element name.
//
// CIM names (namespaces, classes, properties, methods, qualifiers, key
// binding names) compare case-insensitively but keep their declared
// spelling. All containers and stores fold names with this function.
func FoldName(name string) string {
	if isASCII(name) {
		return strings.ToLower(name)
	}
	return cases.Fold().String(name)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// NocaseMap is an ordered map with case-insensitive string keys.
//
// Lookup folds the key with FoldName; enumeration returns entries in
// insertion order, spelled the way they were last set.
//
// The zero value is an empty map ready to use. Read methods are safe to
// call on a nil receiver.
type NocaseMap[V any] struct {
	vals  map[string]V
	names map[string]string
	order []string
}

// NewNocaseMap makes new empty NocaseMap.
func NewNocaseMap[V any]() *NocaseMap[V] {
	return &NocaseMap[V]{}
}

// Len returns entries count.
func (m *NocaseMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Has returns is entry with specified name exists. Name case is ignored.
func (m *NocaseMap[V]) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.vals[FoldName(name)]
	return ok
}

// Get returns entry value by name. Name case is ignored.
func (m *NocaseMap[V]) Get(name string) (V, bool) {
	if m == nil {
		var v V
		return v, false
	}
	v, ok := m.vals[FoldName(name)]
	return v, ok
}

// Set stores value under name. If an entry with the same folded name
// already exists, it keeps its position in the enumeration order and
// takes the new spelling.
func (m *NocaseMap[V]) Set(name string, value V) {
	f := FoldName(name)
	if m.vals == nil {
		m.vals = make(map[string]V)
		m.names = make(map[string]string)
	}
	if _, ok := m.vals[f]; !ok {
		m.order = append(m.order, f)
	}
	m.vals[f] = value
	m.names[f] = name
}

// Remove deletes entry by name and returns is it was exists. Name case
// is ignored.
func (m *NocaseMap[V]) Remove(name string) bool {
	if m == nil {
		return false
	}
	f := FoldName(name)
	if _, ok := m.vals[f]; !ok {
		return false
	}
	delete(m.vals, f)
	delete(m.names, f)
	if i := slices.Index(m.order, f); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	return true
}

// Names returns entry names in insertion order, in their stored spelling.
func (m *NocaseMap[V]) Names() []string {
	if m == nil {
		return nil
	}
	nn := make([]string, len(m.order))
	for i, f := range m.order {
		nn[i] = m.names[f]
	}
	return nn
}

// Enum enumerates all entries in insertion order.
func (m *NocaseMap[V]) Enum(cb func(name string, value V)) {
	if m == nil {
		return
	}
	for _, f := range m.order {
		cb(m.names[f], m.vals[f])
	}
}

// Clone returns a copy of the map. Entry values are copied with the
// clone function; nil clone copies values as is, which is enough for
// maps with value semantics entries.
func (m *NocaseMap[V]) Clone(clone func(V) V) *NocaseMap[V] {
	if m == nil {
		return nil
	}
	c := &NocaseMap[V]{
		vals:  make(map[string]V, len(m.vals)),
		names: make(map[string]string, len(m.names)),
		order: slices.Clone(m.order),
	}
	for f, v := range m.vals {
		if clone != nil {
			v = clone(v)
		}
		c.vals[f] = v
		c.names[f] = m.names[f]
	}
	return c
}

/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"strings"

	"github.com/wbemsim/wbemsim/pkg/cim"
)

// normalizeNamespace strips leading and trailing namespace separators:
// «/root/cimv2/» and «root/cimv2» name the same namespace.
func normalizeNamespace(ns string) string {
	return strings.Trim(ns, "/")
}

// namespaces couples the set of registered namespace names with the per
// namespace object stores.
//
// Registration and store existence are tracked separately: read paths
// that bypass addNamespace auto-vivify stores for namespaces that were
// never registered, see getOrCreateStores. Registration controls what
// ValidateNamespace and Namespaces report.
type namespaces struct {
	// registered names, value keeps the normalized spelling for listings
	names *cim.NocaseMap[string]

	stores *cim.NocaseMap[*nsStores]
}

func newNamespaces() *namespaces {
	return &namespaces{
		names:  cim.NewNocaseMap[string](),
		stores: cim.NewNocaseMap[*nsStores](),
	}
}

// exists returns is the normalized namespace registered.
func (nn *namespaces) exists(ns string) bool {
	return nn.names.Has(ns)
}

// add registers the normalized namespace and allocates all four store
// partitions for it. Allocation is atomic with registration, a registered
// namespace never lacks a partition.
func (nn *namespaces) add(ns string) error {
	if nn.names.Has(ns) {
		return cim.ErrAlreadyExists("namespace «%s»", ns)
	}
	nn.names.Set(ns, ns)
	if !nn.stores.Has(ns) {
		nn.stores.Set(ns, newNSStores())
	}
	return nil
}

// remove unregisters the normalized namespace and frees its stores.
//
// Fails if the namespace holds any qualifier declaration, class or
// instance, or is the current default namespace. Method callbacks alone
// do not block removal.
func (nn *namespaces) remove(ns, defaultNS string) error {
	if !nn.names.Has(ns) {
		return cim.ErrNotFound("namespace «%s»", ns)
	}
	if st, ok := nn.stores.Get(ns); ok {
		if st.qualifiers.Len() > 0 || st.classes.Len() > 0 || st.instances.len() > 0 {
			return cim.ErrNamespaceNotEmpty("namespace «%s» contains objects", ns)
		}
	}
	if cim.FoldName(ns) == cim.FoldName(defaultNS) {
		return cim.ErrNamespaceNotEmpty("namespace «%s» is the default namespace", ns)
	}
	nn.names.Remove(ns)
	nn.stores.Remove(ns)
	return nil
}

// getOrCreateStores returns the store partitions of the normalized
// namespace, lazily allocating them for a namespace that was never
// registered. Intentional idempotent side effect of read paths that skip
// addNamespace.
func (nn *namespaces) getOrCreateStores(ns string) *nsStores {
	if st, ok := nn.stores.Get(ns); ok {
		return st
	}
	st := newNSStores()
	nn.stores.Set(ns, st)
	return st
}

// all returns registered namespace names in registration order.
func (nn *namespaces) all() []string {
	return nn.names.Names()
}

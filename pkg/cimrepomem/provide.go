/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

// Package cimrepomem is the in-memory implementation of cimrepo: a CIM
// object repository holding namespaces, qualifier declarations, resolved
// classes, instances and method callbacks, with an optional backing
// connection for class and qualifier fallback reads.
package cimrepomem

import (
	"github.com/untillpro/goutils/logger"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

// Provide creates a repository backed by conn, with the default namespace
// registered. A nil conn makes a standalone repository: lookups never
// leave the local stores and class resolution runs locally.
func Provide(conn cimrepo.IRepoConnection, defaultNamespace string) (cimrepo.IRepository, error) {
	ns := normalizeNamespace(defaultNamespace)
	if ns == "" {
		return nil, cim.ErrInvalidParameter("default namespace «%s» is empty after normalization", defaultNamespace)
	}
	if conn == nil {
		conn = ProvideNullConnection()
	}
	r := &repo{
		conn:      conn,
		nss:       newNamespaces(),
		defaultNS: ns,
	}
	if err := r.nss.add(ns); err != nil {
		return nil, err
	}
	logger.Verbose("repository provided, default namespace", ns, ", conn", r.ConnID())
	return r, nil
}

// ProvideStandalone creates a repository without a backing connection.
func ProvideStandalone(defaultNamespace string) (cimrepo.IRepository, error) {
	return Provide(nil, defaultNamespace)
}

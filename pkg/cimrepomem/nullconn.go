/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"github.com/google/uuid"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

// nullConn backs a repository provided without a connection: every lookup
// misses and class resolution runs locally. See cimrepo.IRepoConnection.
type nullConn struct {
	connID string
}

// ProvideNullConnection returns a connection whose lookups always miss.
// Provide substitutes it for a nil connection.
func ProvideNullConnection() cimrepo.IRepoConnection {
	return &nullConn{connID: "null:" + uuid.NewString()}
}

func (c *nullConn) ConnID() string { return c.connID }

func (c *nullConn) GetClass(namespace, className string, _ cimrepo.GetClassOpts) (*cim.Class, error) {
	return nil, cim.ErrClassNotFound(className, namespace)
}

func (c *nullConn) GetQualifier(namespace, name string) (*cim.QualifierDecl, error) {
	return nil, cim.ErrQualifierNotFound(name, namespace)
}

func (c *nullConn) EnumerateQualifiers(string) ([]*cim.QualifierDecl, error) {
	return nil, nil
}

func (c *nullConn) ResolveClass(namespace string, class *cim.Class, scope cimrepo.IResolveScope) (*cim.Class, error) {
	return ResolveClass(namespace, class, scope)
}

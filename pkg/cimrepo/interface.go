/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

// Package cimrepo defines the contract between WBEM operation front ends
// (protocol dispatchers, MOF compiler output) and a CIM object repository.
//
// An in-memory implementation lives in cimrepomem.
package cimrepo

import (
	"github.com/wbemsim/wbemsim/pkg/cim"
)

// GetClassOpts controls the class view IRepository.GetClass assembles.
// The zero value returns the full inheritance view without qualifiers and
// class origins.
type GetClassOpts struct {
	// return only members the class defines itself, inherited members stripped
	LocalOnly bool

	// include qualifiers of the class and its members
	IncludeQualifiers bool

	// include class origin tags of properties and methods
	IncludeClassOrigin bool
}

// FullClassView returns options for the complete class view: inherited
// members merged, qualifiers and class origins included. This is the view
// class resolution works with.
func FullClassView() GetClassOpts {
	return GetClassOpts{IncludeQualifiers: true, IncludeClassOrigin: true}
}

// MethodCallback executes a CIM method registered for a class.
//
// object is the path of the instance or class the method is invoked on,
// in carries the input parameter values. Returns the method return value
// and the output parameter values.
type MethodCallback func(namespace string, object *cim.Path, method string, in *cim.NocaseMap[cim.Value]) (ret cim.Value, out *cim.NocaseMap[cim.Value], err error)

// IResolveScope gives a class resolution routine read access to the
// repository state of the namespace the class is resolved against.
type IResolveScope interface {
	// returns the full view of an existing class, see FullClassView
	// could return cim.ErrNotFoundError
	LookupClass(className string) (*cim.Class, error)

	// returns the declaration of a qualifier, local declarations first,
	// then the backing connection
	// could return cim.ErrNotFoundError
	LookupQualifier(name string) (*cim.QualifierDecl, error)
}

// IRepoConnection is the backing WBEM connection behind a repository.
//
// Class and qualifier reads missing the local stores fall back to it, and
// it owns the class resolution routine applied by CreateClass. A
// repository provided without a connection uses a null implementation
// whose lookups always miss and whose resolution runs locally.
type IRepoConnection interface {
	// unique id of the connection, used in logs and diagnostics
	ConnID() string

	// could return cim.ErrNotFoundError
	GetClass(namespace, className string, opts GetClassOpts) (*cim.Class, error)

	// could return cim.ErrNotFoundError
	GetQualifier(namespace, name string) (*cim.QualifierDecl, error)

	EnumerateQualifiers(namespace string) ([]*cim.QualifierDecl, error)

	// ResolveClass prepares a client supplied class for storage: checks
	// the superclass, merges inherited members in, assigns class origin
	// and propagated tags and applies qualifier declarations.
	// The class is not modified, the resolved copy is returned.
	// could return cim.ErrInvalidSuperclassError, cim.ErrInvalidParameterError
	ResolveClass(namespace string, class *cim.Class, scope IResolveScope) (*cim.Class, error)
}

// IRepository is a CIM object repository: namespaces with per-namespace
// qualifier declaration, class, instance and method stores.
//
// All names compare case-insensitively. Objects are copied on the way in
// and out, a caller never shares state with the stores.
//
// implemented in cimrepomem
type IRepository interface {
	// unique id of the backing connection, see IRepoConnection.ConnID
	ConnID() string

	DefaultNamespace() string

	// could return cim.ErrInvalidNamespaceError for an unregistered namespace
	SetDefaultNamespace(namespace string) error

	// ValidateNamespace returns is the namespace registered. Leading and
	// trailing slashes and name case are ignored, as everywhere.
	ValidateNamespace(namespace string) bool

	// could return cim.ErrAlreadyExistsError, cim.ErrInvalidParameterError
	AddNamespace(namespace string) error

	// RemoveNamespace removes an empty registered namespace.
	// could return cim.ErrNotFoundError, cim.ErrNamespaceNotEmptyError
	RemoveNamespace(namespace string) error

	// Namespaces returns registered namespace names in registration order.
	Namespaces() []string

	// CreateClass resolves the class against the namespace and stores the
	// resolved form. Referenced classes must exist, a dangling reference
	// reports an invalid parameter error. The supplied class is not
	// modified. Nothing is stored on error.
	// could return cim.ErrInvalidSuperclassError, cim.ErrInvalidParameterError
	CreateClass(namespace string, class *cim.Class) error

	// GetClass assembles the requested view of a stored class. A class
	// missing locally is fetched from the backing connection and cached.
	// The repository state is otherwise not modified.
	// could return cim.ErrNotFoundError
	GetClass(namespace, className string, opts GetClassOpts) (*cim.Class, error)

	// could return cim.ErrNotFoundError
	DeleteClass(namespace, className string) error

	// EnumerateClassNames returns names of stored classes: roots for an
	// empty className, direct subclasses of className, or all descendants
	// when deep. Names come in class creation order.
	// could return cim.ErrNotFoundError for an unknown non empty className
	EnumerateClassNames(namespace, className string, deep bool) ([]string, error)

	// EnumerateClasses returns the classes EnumerateClassNames would name,
	// each assembled per opts.
	EnumerateClasses(namespace, className string, deep bool, opts GetClassOpts) ([]*cim.Class, error)

	// CompileOrderedClassNames returns stored class names in an order fit
	// for re-compilation: every superclass ahead of its subclasses.
	CompileOrderedClassNames(namespace string) ([]string, error)

	// SetQualifier stores a qualifier declaration, overwriting an existing
	// declaration with the same name.
	// could return cim.ErrInvalidParameterError
	SetQualifier(namespace string, decl *cim.QualifierDecl) error

	// GetQualifier returns a declaration from the local store, falling
	// back to the backing connection. The fallback is not cached.
	// could return cim.ErrNotFoundError
	GetQualifier(namespace, name string) (*cim.QualifierDecl, error)

	// EnumerateQualifiers returns the backing connection declarations
	// followed by the local ones, local in declaration order.
	EnumerateQualifiers(namespace string) ([]*cim.QualifierDecl, error)

	// could return cim.ErrNotFoundError
	DeleteQualifier(namespace, name string) error

	// CreateInstance derives the instance path from the class key
	// properties unless the client supplied one, verifies every key
	// property is present and stores a copy. Returns the path of the
	// stored instance.
	// could return cim.ErrNotFoundError for an unknown class,
	// cim.ErrInvalidParameterError, cim.ErrAlreadyExistsError
	CreateInstance(namespace string, inst *cim.Instance) (*cim.Path, error)

	// could return cim.ErrNotFoundError
	GetInstance(namespace string, path *cim.Path) (*cim.Instance, error)

	// ModifyInstance merges the properties of modified into the stored
	// instance with the same path. Properties absent from modified keep
	// their stored values. The namespace comes from the path, the default
	// namespace for a path without one.
	// could return cim.ErrInvalidNamespaceError, cim.ErrInvalidParameterError,
	// cim.ErrNotFoundError
	ModifyInstance(modified *cim.Instance) error

	// could return cim.ErrNotFoundError
	DeleteInstance(namespace string, path *cim.Path) error

	// EnumerateInstances returns stored instances of the class and its
	// stored subclasses, all instances for an empty className. Instances
	// come in creation order.
	// could return cim.ErrNotFoundError for an unknown non empty className
	EnumerateInstances(namespace, className string) ([]*cim.Instance, error)

	// EnumerateInstancePaths returns the paths of the instances
	// EnumerateInstances would return.
	EnumerateInstancePaths(namespace, className string) ([]*cim.Path, error)

	// RegisterMethodCallback binds a callback to a method the class
	// declares. One callback per class method.
	// could return cim.ErrNotFoundError for an unknown class,
	// cim.ErrInvalidParameterError, cim.ErrAlreadyExistsError
	RegisterMethodCallback(namespace, className, methodName string, cb MethodCallback) error

	// MethodCallback returns the callback registered for the class method.
	// could return cim.ErrNotFoundError
	MethodCallback(namespace, className, methodName string) (MethodCallback, error)

	// InvokeMethod runs the callback registered for the method on the
	// class the object path names.
	// could return cim.ErrInvalidParameterError, cim.ErrNotFoundError
	InvokeMethod(namespace string, object *cim.Path, method string, in *cim.NocaseMap[cim.Value]) (ret cim.Value, out *cim.NocaseMap[cim.Value], err error)
}

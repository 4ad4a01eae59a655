/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"errors"
	"fmt"

	"github.com/untillpro/goutils/logger"
	"golang.org/x/exp/slices"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

// repo implements cimrepo.IRepository over in-memory stores.
//
// Not safe for concurrent use, callers serialize access. One repository
// per simulated connection is the expected shape.
type repo struct {
	conn      cimrepo.IRepoConnection
	nss       *namespaces
	defaultNS string
}

func (r *repo) ConnID() string {
	return r.conn.ConnID()
}

func (r *repo) DefaultNamespace() string {
	return r.defaultNS
}

func (r *repo) SetDefaultNamespace(namespace string) error {
	ns := normalizeNamespace(namespace)
	if !r.nss.exists(ns) {
		return cim.ErrNamespaceNotRegistered(ns)
	}
	r.defaultNS = ns
	return nil
}

func (r *repo) ValidateNamespace(namespace string) bool {
	return r.nss.exists(normalizeNamespace(namespace))
}

func (r *repo) AddNamespace(namespace string) error {
	ns := normalizeNamespace(namespace)
	if ns == "" {
		return cim.ErrInvalidParameter("namespace name «%s» is empty after normalization", namespace)
	}
	if err := r.nss.add(ns); err != nil {
		return err
	}
	logger.Verbose("namespace", ns, "added, conn", r.ConnID())
	return nil
}

func (r *repo) RemoveNamespace(namespace string) error {
	ns := normalizeNamespace(namespace)
	if err := r.nss.remove(ns, r.defaultNS); err != nil {
		return err
	}
	logger.Verbose("namespace", ns, "removed, conn", r.ConnID())
	return nil
}

func (r *repo) Namespaces() []string {
	return r.nss.all()
}

// checkNamespace normalizes the namespace and verifies it is registered.
func (r *repo) checkNamespace(namespace string) (string, error) {
	ns := normalizeNamespace(namespace)
	if !r.nss.exists(ns) {
		return "", cim.ErrNamespaceNotRegistered(ns)
	}
	return ns, nil
}

func (r *repo) CreateClass(namespace string, class *cim.Class) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	if class == nil || class.ClassName == "" {
		return cim.ErrInvalidParameter("a class with a class name is required")
	}
	if err := r.checkSuperclassCycle(ns, class); err != nil {
		return err
	}
	if err := r.checkClassReferences(ns, class); err != nil {
		return err
	}

	resolved, err := r.conn.ResolveClass(ns, class, resolveScope{r: r, ns: ns})
	if err != nil {
		return err
	}

	st := r.nss.getOrCreateStores(ns)
	st.classes.Set(resolved.ClassName, resolved)
	st.appendCompileOrder(resolved.ClassName)
	logger.Verbose("class", resolved.ClassName, "created in namespace", ns)
	return nil
}

// checkSuperclassCycle rejects classes whose storage would close an
// inheritance cycle. Possible through idempotent overwrite only, a plain
// create fails earlier on the unresolvable superclass.
func (r *repo) checkSuperclassCycle(ns string, class *cim.Class) error {
	if class.SuperClass == "" {
		return nil
	}
	self := cim.FoldName(class.ClassName)
	if cim.FoldName(class.SuperClass) == self {
		return cim.ErrInvalidSuperclass("class «%s» can not be its own superclass", class.ClassName)
	}

	st := r.nss.getOrCreateStores(ns)
	seen := map[string]bool{}
	cur := class.SuperClass
	for {
		f := cim.FoldName(cur)
		if f == self {
			return cim.ErrInvalidSuperclass("superclass «%s» of class «%s» closes an inheritance cycle",
				class.SuperClass, class.ClassName)
		}
		if seen[f] {
			return nil
		}
		seen[f] = true
		c, ok := st.classes.Get(cur)
		if !ok || c.SuperClass == "" {
			return nil
		}
		cur = c.SuperClass
	}
}

// checkClassReferences verifies every class a new class points to exists:
// reference properties and parameters, EmbeddedInstance qualifiers. A
// missing target is an authoring error, so the lookup miss reports an
// invalid parameter error, not a not found error.
func (r *repo) checkClassReferences(ns string, class *cim.Class) error {
	checkRef := func(refClass, elem string) error {
		if refClass == "" {
			return cim.ErrInvalidParameter("%s of class «%s» names no class", elem, class.ClassName)
		}
		if cim.FoldName(refClass) == cim.FoldName(class.ClassName) {
			// the class being created may point to itself
			return nil
		}
		_, err := r.getClass(ns, refClass, cimrepo.GetClassOpts{LocalOnly: true, IncludeQualifiers: true})
		if err != nil {
			if errors.Is(err, cim.ErrNotFoundError) {
				return cim.ErrInvalidParameter("class «%s» referenced by %s of class «%s» in namespace «%s» does not exist",
					refClass, elem, class.ClassName, ns)
			}
			return err
		}
		return nil
	}

	for _, pn := range class.Properties.Names() {
		p, _ := class.Properties.Get(pn)
		if p.Type == cim.Type_reference {
			if err := checkRef(p.ReferenceClass, fmt.Sprintf("reference property «%s»", pn)); err != nil {
				return err
			}
		}
		if p.Type == cim.Type_string {
			if q, ok := p.Qualifiers.Get(cim.QualifierNameEmbeddedInstance); ok {
				ec, ok := q.Value.(string)
				if !ok || ec == "" {
					return cim.ErrInvalidParameter("EmbeddedInstance qualifier of property «%s» of class «%s» names no class",
						pn, class.ClassName)
				}
				if err := checkRef(ec, fmt.Sprintf("EmbeddedInstance qualifier of property «%s»", pn)); err != nil {
					return err
				}
			}
		}
	}

	for _, mn := range class.Methods.Names() {
		m, _ := class.Methods.Get(mn)
		for _, pn := range m.Parameters.Names() {
			p, _ := m.Parameters.Get(pn)
			if p.Type == cim.Type_reference {
				if err := checkRef(p.ReferenceClass,
					fmt.Sprintf("reference parameter «%s» of method «%s»", pn, mn)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *repo) GetClass(namespace, className string, opts cimrepo.GetClassOpts) (*cim.Class, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	return r.getClass(ns, className, opts)
}

// getClass works on a normalized, registered namespace.
//
// The only store mutation on this read path is caching a class fetched
// from the backing connection. The inherited member merge happens on a
// fresh copy every call, stored classes never accumulate state.
func (r *repo) getClass(ns, className string, opts cimrepo.GetClassOpts) (*cim.Class, error) {
	return r.getClassRec(ns, className, opts, nil)
}

func (r *repo) getClassRec(ns, className string, opts cimrepo.GetClassOpts, visited map[string]bool) (*cim.Class, error) {
	st := r.nss.getOrCreateStores(ns)
	cls, ok := st.classes.Get(className)
	if !ok {
		fetched, err := r.conn.GetClass(ns, className, cimrepo.FullClassView())
		if err != nil {
			if errors.Is(err, cim.ErrNotFoundError) {
				return nil, cim.ErrClassNotFound(className, ns)
			}
			return nil, err
		}
		st.classes.Set(fetched.ClassName, fetched)
		logger.Verbose("class", fetched.ClassName, "cached into namespace", ns, "from conn", r.ConnID())
		cls = fetched
	}

	out := cls.Clone()
	if !opts.LocalOnly && out.SuperClass != "" {
		f := cim.FoldName(out.ClassName)
		if visited[f] {
			return nil, cim.ErrFailed("superclass chain of class «%s» in namespace «%s» contains a cycle", className, ns)
		}
		if visited == nil {
			visited = map[string]bool{}
		}
		visited[f] = true
		super, err := r.getClassRec(ns, out.SuperClass, cimrepo.FullClassView(), visited)
		if err != nil {
			return nil, err
		}
		mergeSuperMembers(out, super)
	}
	if opts.LocalOnly {
		stripPropagated(out)
	}
	if !opts.IncludeQualifiers {
		stripQualifiers(out)
	}
	if !opts.IncludeClassOrigin {
		stripClassOrigins(out)
	}
	return out, nil
}

// mergeSuperMembers adopts superclass members absent from the class. The
// superclass view is a fresh copy, its members move over without cloning.
func mergeSuperMembers(cls, super *cim.Class) {
	for _, n := range super.Properties.Names() {
		if cls.Properties.Has(n) {
			continue
		}
		p, _ := super.Properties.Get(n)
		p.Propagated = true
		if p.ClassOrigin == "" {
			p.ClassOrigin = super.ClassName
		}
		cls.Properties.Set(p.Name, p)
	}
	for _, n := range super.Methods.Names() {
		if cls.Methods.Has(n) {
			continue
		}
		m, _ := super.Methods.Get(n)
		m.Propagated = true
		if m.ClassOrigin == "" {
			m.ClassOrigin = super.ClassName
		}
		cls.Methods.Set(m.Name, m)
	}
}

func stripPropagated(cls *cim.Class) {
	for _, n := range cls.Properties.Names() {
		if p, _ := cls.Properties.Get(n); p.Propagated {
			cls.Properties.Remove(n)
		}
	}
	for _, n := range cls.Methods.Names() {
		if m, _ := cls.Methods.Get(n); m.Propagated {
			cls.Methods.Remove(n)
		}
	}
}

func stripQualifiers(cls *cim.Class) {
	cls.Qualifiers = cim.NewNocaseMap[*cim.Qualifier]()
	cls.Properties.Enum(func(_ string, p *cim.Property) {
		p.Qualifiers = cim.NewNocaseMap[*cim.Qualifier]()
	})
	cls.Methods.Enum(func(_ string, m *cim.Method) {
		m.Qualifiers = cim.NewNocaseMap[*cim.Qualifier]()
		m.Parameters.Enum(func(_ string, p *cim.Parameter) {
			p.Qualifiers = cim.NewNocaseMap[*cim.Qualifier]()
		})
	})
}

func stripClassOrigins(cls *cim.Class) {
	cls.Properties.Enum(func(_ string, p *cim.Property) { p.ClassOrigin = "" })
	cls.Methods.Enum(func(_ string, m *cim.Method) { m.ClassOrigin = "" })
}

func (r *repo) DeleteClass(namespace, className string) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	st := r.nss.getOrCreateStores(ns)
	if !st.classes.Remove(className) {
		return cim.ErrClassNotFound(className, ns)
	}
	st.removeCompileOrder(className)
	st.methods.Remove(className)
	return nil
}

func (r *repo) EnumerateClassNames(namespace, className string, deep bool) ([]string, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	return r.enumClassNames(ns, className, deep)
}

func (r *repo) enumClassNames(ns, className string, deep bool) ([]string, error) {
	st := r.nss.getOrCreateStores(ns)
	if className != "" && !st.classes.Has(className) {
		return nil, cim.ErrClassNotFound(className, ns)
	}

	names := []string{}
	switch {
	case className == "" && deep:
		names = append(names, st.classes.Names()...)
	case className == "":
		st.classes.Enum(func(name string, c *cim.Class) {
			if c.SuperClass == "" {
				names = append(names, name)
			}
		})
	case deep:
		st.classes.Enum(func(name string, c *cim.Class) {
			if st.isSubclassOf(name, className) {
				names = append(names, name)
			}
		})
	default:
		f := cim.FoldName(className)
		st.classes.Enum(func(name string, c *cim.Class) {
			if cim.FoldName(c.SuperClass) == f {
				names = append(names, name)
			}
		})
	}
	return names, nil
}

func (r *repo) EnumerateClasses(namespace, className string, deep bool, opts cimrepo.GetClassOpts) ([]*cim.Class, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	names, err := r.enumClassNames(ns, className, deep)
	if err != nil {
		return nil, err
	}
	out := make([]*cim.Class, 0, len(names))
	for _, n := range names {
		c, err := r.getClass(ns, n, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *repo) CompileOrderedClassNames(namespace string) ([]string, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	st := r.nss.getOrCreateStores(ns)
	return slices.Clone(st.compileOrder), nil
}

func (r *repo) SetQualifier(namespace string, decl *cim.QualifierDecl) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	if decl == nil || decl.Name == "" {
		return cim.ErrInvalidParameter("a qualifier declaration with a name is required")
	}
	st := r.nss.getOrCreateStores(ns)
	st.qualifiers.Set(decl.Name, decl.Clone())
	return nil
}

func (r *repo) GetQualifier(namespace, name string) (*cim.QualifierDecl, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	st := r.nss.getOrCreateStores(ns)
	if qd, ok := st.qualifiers.Get(name); ok {
		return qd.Clone(), nil
	}
	// fallback read, not cached
	qd, err := r.conn.GetQualifier(ns, name)
	if err != nil {
		if errors.Is(err, cim.ErrNotFoundError) {
			return nil, cim.ErrQualifierNotFound(name, ns)
		}
		return nil, err
	}
	if logger.IsTrace() {
		logger.Trace("qualifier", qd.Name, "read through from conn", r.ConnID())
	}
	return qd, nil
}

func (r *repo) EnumerateQualifiers(namespace string) ([]*cim.QualifierDecl, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	out, err := r.conn.EnumerateQualifiers(ns)
	if err != nil {
		return nil, err
	}
	st := r.nss.getOrCreateStores(ns)
	st.qualifiers.Enum(func(_ string, qd *cim.QualifierDecl) {
		out = append(out, qd.Clone())
	})
	return out, nil
}

func (r *repo) DeleteQualifier(namespace, name string) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	st := r.nss.getOrCreateStores(ns)
	if !st.qualifiers.Remove(name) {
		return cim.ErrQualifierNotFound(name, ns)
	}
	return nil
}

func (r *repo) CreateInstance(namespace string, inst *cim.Instance) (*cim.Path, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if inst == nil || inst.ClassName == "" {
		return nil, cim.ErrInvalidParameter("an instance with a class name is required")
	}

	cls, err := r.getClass(ns, inst.ClassName, cimrepo.FullClassView())
	if err != nil {
		return nil, err
	}
	keys := cls.KeyPropertyNames()
	if len(keys) == 0 {
		return nil, cim.ErrInvalidParameter("class «%s» declares no key properties, its instances can not be addressed",
			cls.ClassName)
	}
	for _, k := range keys {
		if !inst.Properties.Has(k) {
			return nil, cim.ErrInvalidParameter("key property «%s» of class «%s» is missing from the new instance",
				k, cls.ClassName)
		}
	}

	stored := inst.Clone()
	if stored.Path == nil || stored.Path.KeyBindings.Len() == 0 {
		p, err := cim.PathFromInstance(cls, stored, ns)
		if err != nil {
			return nil, err
		}
		stored.Path = p
	} else if err := alignPath(stored.Path, stored.ClassName, ns); err != nil {
		return nil, err
	}

	st := r.nss.getOrCreateStores(ns)
	if st.instances.has(stored.Path) {
		return nil, cim.ErrAlreadyExists("instance «%v» in namespace «%s»", stored.Path, ns)
	}
	st.instances.set(stored)
	if logger.IsVerbose() {
		logger.Verbose("instance", stored.Path.String(), "created in namespace", ns)
	}
	return stored.Path.Clone(), nil
}

// alignPath fills missing namespace and class name on a client supplied
// path and rejects mismatches with the instance being stored.
func alignPath(p *cim.Path, className, ns string) error {
	if p.ClassName == "" {
		p.ClassName = className
	} else if cim.FoldName(p.ClassName) != cim.FoldName(className) {
		return cim.ErrInvalidParameter("instance of class «%s» carries a path of class «%s»", className, p.ClassName)
	}
	pns := normalizeNamespace(p.Namespace)
	if pns == "" {
		p.Namespace = ns
	} else if cim.FoldName(pns) != cim.FoldName(ns) {
		return cim.ErrInvalidParameter("instance path namespace «%s» does not match target namespace «%s»", p.Namespace, ns)
	} else {
		p.Namespace = pns
	}
	return nil
}

// lookupPath keys a client supplied path into the namespace's store: the
// namespace argument of the operation is authoritative.
func lookupPath(path *cim.Path, ns string) *cim.Path {
	p := path.Clone()
	p.Namespace = ns
	return p
}

func (r *repo) GetInstance(namespace string, path *cim.Path) (*cim.Instance, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, cim.ErrInvalidParameter("an instance path is required")
	}
	st := r.nss.getOrCreateStores(ns)
	inst, ok := st.instances.get(lookupPath(path, ns))
	if !ok {
		return nil, cim.ErrInstanceNotFound(path, ns)
	}
	return inst.Clone(), nil
}

func (r *repo) ModifyInstance(modified *cim.Instance) error {
	if modified == nil || modified.Path == nil {
		return cim.ErrInvalidParameter("a modified instance with a path is required")
	}
	ns := normalizeNamespace(modified.Path.Namespace)
	if ns == "" {
		ns = r.defaultNS
	}
	if !r.nss.exists(ns) {
		return cim.ErrNamespaceNotRegistered(ns)
	}

	st := r.nss.getOrCreateStores(ns)
	existing, ok := st.instances.get(lookupPath(modified.Path, ns))
	if !ok {
		return cim.ErrInstanceNotFound(modified.Path, ns)
	}
	// merge, not replace: untouched properties keep their stored values
	modified.Properties.Enum(func(name string, p *cim.Property) {
		existing.Properties.Set(name, p.Clone())
	})
	return nil
}

func (r *repo) DeleteInstance(namespace string, path *cim.Path) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	if path == nil {
		return cim.ErrInvalidParameter("an instance path is required")
	}
	st := r.nss.getOrCreateStores(ns)
	if !st.instances.remove(lookupPath(path, ns)) {
		return cim.ErrInstanceNotFound(path, ns)
	}
	return nil
}

func (r *repo) EnumerateInstances(namespace, className string) ([]*cim.Instance, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	match, err := r.instanceClassFilter(ns, className)
	if err != nil {
		return nil, err
	}
	out := []*cim.Instance{}
	r.nss.getOrCreateStores(ns).instances.enum(func(inst *cim.Instance) {
		if match(inst.ClassName) {
			out = append(out, inst.Clone())
		}
	})
	return out, nil
}

func (r *repo) EnumerateInstancePaths(namespace, className string) ([]*cim.Path, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	match, err := r.instanceClassFilter(ns, className)
	if err != nil {
		return nil, err
	}
	out := []*cim.Path{}
	r.nss.getOrCreateStores(ns).instances.enum(func(inst *cim.Instance) {
		if match(inst.ClassName) {
			out = append(out, inst.Path.Clone())
		}
	})
	return out, nil
}

// instanceClassFilter matches instances of the class and of its stored
// subclasses. An empty class name matches everything.
func (r *repo) instanceClassFilter(ns, className string) (func(string) bool, error) {
	if className == "" {
		return func(string) bool { return true }, nil
	}
	if _, err := r.getClass(ns, className, cimrepo.GetClassOpts{LocalOnly: true}); err != nil {
		return nil, err
	}
	st := r.nss.getOrCreateStores(ns)
	f := cim.FoldName(className)
	return func(instClass string) bool {
		return cim.FoldName(instClass) == f || st.isSubclassOf(instClass, className)
	}, nil
}

func (r *repo) RegisterMethodCallback(namespace, className, methodName string, cb cimrepo.MethodCallback) error {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return err
	}
	if cb == nil {
		return cim.ErrInvalidParameter("a method callback is required")
	}
	cls, err := r.getClass(ns, className, cimrepo.FullClassView())
	if err != nil {
		return err
	}
	if !cls.Methods.Has(methodName) {
		return cim.ErrInvalidParameter("class «%s» does not declare method «%s»", cls.ClassName, methodName)
	}

	st := r.nss.getOrCreateStores(ns)
	mm, ok := st.methods.Get(className)
	if !ok {
		mm = cim.NewNocaseMap[cimrepo.MethodCallback]()
		st.methods.Set(cls.ClassName, mm)
	}
	if mm.Has(methodName) {
		return cim.ErrAlreadyExists("method callback «%s» of class «%s» in namespace «%s»", methodName, className, ns)
	}
	mm.Set(methodName, cb)
	return nil
}

func (r *repo) MethodCallback(namespace, className, methodName string) (cimrepo.MethodCallback, error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, err
	}
	st := r.nss.getOrCreateStores(ns)
	if mm, ok := st.methods.Get(className); ok {
		if cb, ok := mm.Get(methodName); ok {
			return cb, nil
		}
	}
	return nil, cim.ErrNotFound("method callback «%s» of class «%s» in namespace «%s»", methodName, className, ns)
}

func (r *repo) InvokeMethod(namespace string, object *cim.Path, method string, in *cim.NocaseMap[cim.Value]) (cim.Value, *cim.NocaseMap[cim.Value], error) {
	ns, err := r.checkNamespace(namespace)
	if err != nil {
		return nil, nil, err
	}
	if object == nil || object.ClassName == "" {
		return nil, nil, cim.ErrInvalidParameter("an object path with a class name is required")
	}
	cb, err := r.MethodCallback(ns, object.ClassName, method)
	if err != nil {
		return nil, nil, err
	}
	return cb(ns, object, method, in)
}

// resolveScope adapts one repository namespace to cimrepo.IResolveScope.
type resolveScope struct {
	r  *repo
	ns string
}

func (s resolveScope) LookupClass(className string) (*cim.Class, error) {
	return s.r.getClass(s.ns, className, cimrepo.FullClassView())
}

func (s resolveScope) LookupQualifier(name string) (*cim.QualifierDecl, error) {
	st := s.r.nss.getOrCreateStores(s.ns)
	if qd, ok := st.qualifiers.Get(name); ok {
		return qd, nil
	}
	return s.r.conn.GetQualifier(s.ns, name)
}

/*
 * Copyright (c) 2021-present unTill Pro, Ltd.
 */

package cimrepomem

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/wbemsim/wbemsim/pkg/cim"
	"github.com/wbemsim/wbemsim/pkg/cimrepo"
)

// ResolveClass is the default qualifier-aware class resolution routine,
// used by repositories without a backing connection and available to
// custom cimrepo.IRepoConnection implementations.
//
// Resolution prepares a client supplied class for storage. The class is
// cloned, then:
//   - the declared superclass is looked up in the scope, a failed lookup
//     is an invalid superclass error;
//   - members the class defines itself get their class origin assigned,
//     overriding members keep the origin of the superclass definition;
//   - qualifier declarations are applied to every qualifier: scopes are
//     checked, missing types and values are filled from the declaration
//     and the flavor is aligned with the declared one;
//   - an override of a superclass qualifier declared DisableOverride with
//     a different value is an invalid parameter error;
//   - superclass members absent from the class are merged in and marked
//     propagated, their Restricted qualifiers are dropped;
//   - ToSubclass qualifiers of the superclass and of overridden members
//     are propagated to qualifier sets that lack them.
func ResolveClass(namespace string, class *cim.Class, scope cimrepo.IResolveScope) (*cim.Class, error) {
	rc := class.Clone()

	var super *cim.Class
	if rc.SuperClass != "" {
		s, err := scope.LookupClass(rc.SuperClass)
		if err != nil {
			return nil, cim.ErrInvalidSuperclass("superclass «%s» of class «%s» in namespace «%s»: %v",
				rc.SuperClass, rc.ClassName, namespace, err)
		}
		super = s
	}

	var superQQ *cim.NocaseMap[*cim.Qualifier]
	if super != nil {
		superQQ = super.Qualifiers
	}
	if err := resolveQualifiers(rc.Qualifiers, superQQ, cim.Scope_Class, scope,
		fmt.Sprintf("class «%s»", rc.ClassName)); err != nil {
		return nil, err
	}

	if err := resolveOwnProperties(rc, super, scope); err != nil {
		return nil, err
	}
	if err := resolveOwnMethods(rc, super, scope); err != nil {
		return nil, err
	}

	if super != nil {
		if err := mergeInheritedMembers(rc, super, scope); err != nil {
			return nil, err
		}
	}

	return rc, nil
}

// lookupDecl fetches the declaration of a qualifier from the scope. An
// undeclared qualifier is not an error, any other lookup failure aborts
// resolution.
func lookupDecl(scope cimrepo.IResolveScope, name string) (*cim.QualifierDecl, error) {
	decl, err := scope.LookupQualifier(name)
	if err == nil {
		return decl, nil
	}
	if errors.Is(err, cim.ErrNotFoundError) {
		return nil, nil
	}
	return nil, err
}

func resolveOwnProperties(rc, super *cim.Class, scope cimrepo.IResolveScope) error {
	for _, n := range rc.Properties.Names() {
		p, _ := rc.Properties.Get(n)
		p.Propagated = false
		p.ClassOrigin = rc.ClassName

		var superQQ *cim.NocaseMap[*cim.Qualifier]
		if super != nil {
			if sp, ok := super.Properties.Get(n); ok {
				// override keeps the origin of the first definition
				p.ClassOrigin = sp.ClassOrigin
				if p.ClassOrigin == "" {
					p.ClassOrigin = super.ClassName
				}
				superQQ = sp.Qualifiers
			}
		}

		if err := resolveQualifiers(p.Qualifiers, superQQ, propertyScope(p), scope,
			fmt.Sprintf("property «%s» of class «%s»", n, rc.ClassName)); err != nil {
			return err
		}
	}
	return nil
}

func resolveOwnMethods(rc, super *cim.Class, scope cimrepo.IResolveScope) error {
	for _, n := range rc.Methods.Names() {
		m, _ := rc.Methods.Get(n)
		m.Propagated = false
		m.ClassOrigin = rc.ClassName

		var superQQ *cim.NocaseMap[*cim.Qualifier]
		if super != nil {
			if sm, ok := super.Methods.Get(n); ok {
				m.ClassOrigin = sm.ClassOrigin
				if m.ClassOrigin == "" {
					m.ClassOrigin = super.ClassName
				}
				superQQ = sm.Qualifiers
			}
		}

		if err := resolveQualifiers(m.Qualifiers, superQQ, cim.Scope_Method, scope,
			fmt.Sprintf("method «%s» of class «%s»", n, rc.ClassName)); err != nil {
			return err
		}

		for _, pn := range m.Parameters.Names() {
			p, _ := m.Parameters.Get(pn)
			if err := resolveQualifiers(p.Qualifiers, nil, parameterScope(p), scope,
				fmt.Sprintf("parameter «%s» of method «%s» of class «%s»", pn, n, rc.ClassName)); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeInheritedMembers appends superclass properties and methods the
// class does not define itself, marked propagated. The superclass view
// comes fully resolved, so merging one level deep covers the whole chain.
func mergeInheritedMembers(rc, super *cim.Class, scope cimrepo.IResolveScope) error {
	for _, n := range super.Properties.Names() {
		if rc.Properties.Has(n) {
			continue
		}
		sp, _ := super.Properties.Get(n)
		cp := sp.Clone()
		cp.Propagated = true
		if cp.ClassOrigin == "" {
			cp.ClassOrigin = super.ClassName
		}
		if err := markPropagatedQualifiers(cp.Qualifiers, scope); err != nil {
			return err
		}
		rc.Properties.Set(cp.Name, cp)
	}

	for _, n := range super.Methods.Names() {
		if rc.Methods.Has(n) {
			continue
		}
		sm, _ := super.Methods.Get(n)
		cm := sm.Clone()
		cm.Propagated = true
		if cm.ClassOrigin == "" {
			cm.ClassOrigin = super.ClassName
		}
		if err := markPropagatedQualifiers(cm.Qualifiers, scope); err != nil {
			return err
		}
		rc.Methods.Set(cm.Name, cm)
	}
	return nil
}

// resolveQualifiers applies declarations to an element's own qualifiers
// and merges the same element's superclass propagation in.
func resolveQualifiers(qq, superQQ *cim.NocaseMap[*cim.Qualifier], el cim.Scope, scope cimrepo.IResolveScope, elem string) error {
	for _, n := range qq.Names() {
		q, _ := qq.Get(n)
		decl, err := lookupDecl(scope, n)
		if err != nil {
			return err
		}
		if decl != nil {
			if !decl.Scopes.Overlaps(el) {
				return cim.ErrInvalidParameter("qualifier «%s» is not allowed on %s, declaration scopes are «%v»",
					n, elem, decl.Scopes)
			}
			if q.Type == cim.Type_null {
				q.Type = decl.Type
			}
			if q.Value == nil && decl.Value != nil {
				q.Value = cim.CloneValue(decl.Value)
			}
			// the declaration owns propagation semantics
			q.Flavor = decl.Flavor
		}

		if superQQ != nil {
			if sq, ok := superQQ.Get(n); ok {
				f, err := effectiveFlavor(sq, scope)
				if err != nil {
					return err
				}
				if !f.Overridable && !valueEqual(q.Value, sq.Value) {
					return cim.ErrInvalidParameter("qualifier «%s» on %s overrides a DisableOverride qualifier with a different value",
						n, elem)
				}
			}
		}
	}

	if superQQ != nil {
		for _, n := range superQQ.Names() {
			if qq.Has(n) {
				continue
			}
			sq, _ := superQQ.Get(n)
			f, err := effectiveFlavor(sq, scope)
			if err != nil {
				return err
			}
			if !f.ToSubclass {
				continue
			}
			cq := sq.Clone()
			cq.Propagated = true
			qq.Set(cq.Name, cq)
		}
	}
	return nil
}

// markPropagatedQualifiers prepares a qualifier set cloned from a
// superclass member: Restricted qualifiers are dropped, the rest are
// marked propagated.
func markPropagatedQualifiers(qq *cim.NocaseMap[*cim.Qualifier], scope cimrepo.IResolveScope) error {
	for _, n := range qq.Names() {
		q, _ := qq.Get(n)
		f, err := effectiveFlavor(q, scope)
		if err != nil {
			return err
		}
		if !f.ToSubclass {
			qq.Remove(n)
			continue
		}
		q.Propagated = true
	}
	return nil
}

// effectiveFlavor is the declared flavor of the qualifier, falling back
// to the flavor carried by the qualifier itself when no declaration is
// in scope.
func effectiveFlavor(q *cim.Qualifier, scope cimrepo.IResolveScope) (cim.Flavor, error) {
	decl, err := lookupDecl(scope, q.Name)
	if err != nil {
		return cim.Flavor{}, err
	}
	if decl != nil {
		return decl.Flavor, nil
	}
	return q.Flavor, nil
}

func propertyScope(p *cim.Property) cim.Scope {
	if p.Type == cim.Type_reference {
		return cim.Scope_Property | cim.Scope_Reference
	}
	return cim.Scope_Property
}

func parameterScope(p *cim.Parameter) cim.Scope {
	if p.Type == cim.Type_reference {
		return cim.Scope_Parameter | cim.Scope_Reference
	}
	return cim.Scope_Parameter
}

func valueEqual(a, b cim.Value) bool {
	return reflect.DeepEqual(a, b)
}

/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

import "strings"

// Scope is a set of schema element kinds a qualifier may decorate.
type Scope uint8

const (
	Scope_Class Scope = 1 << iota
	Scope_Association
	Scope_Indication
	Scope_Property
	Scope_Reference
	Scope_Method
	Scope_Parameter

	Scope_Any = Scope_Class | Scope_Association | Scope_Indication |
		Scope_Property | Scope_Reference | Scope_Method | Scope_Parameter
)

var scopeNames = []struct {
	scope Scope
	name  string
}{
	{Scope_Class, "class"},
	{Scope_Association, "association"},
	{Scope_Indication, "indication"},
	{Scope_Property, "property"},
	{Scope_Reference, "reference"},
	{Scope_Method, "method"},
	{Scope_Parameter, "parameter"},
}

// Overlaps returns is any element kind from el included into the scope set.
func (s Scope) Overlaps(el Scope) bool {
	return s&el != 0
}

// String renders the scope set as a comma separated list of element kind
// names («class, property», …).
func (s Scope) String() string {
	if s == Scope_Any {
		return "any"
	}
	b := strings.Builder{}
	for _, n := range scopeNames {
		if s&n.scope != 0 {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n.name)
		}
	}
	return b.String()
}

// Flavor controls how a qualifier value propagates from a class to its
// subclasses and instances.
type Flavor struct {
	// EnableOverride if true, DisableOverride if false. A non overridable
	// qualifier can not be redefined with a different value in a subclass.
	Overridable bool

	// ToSubclass if true, Restricted if false. A restricted qualifier is
	// not propagated to inherited class members.
	ToSubclass bool

	ToInstance bool

	Translatable bool
}

// DefaultFlavor returns the default qualifier flavor: EnableOverride and
// ToSubclass.
func DefaultFlavor() Flavor {
	return Flavor{Overridable: true, ToSubclass: true}
}

// QualifierDecl declares a qualifier type within a namespace: its value
// type, default value, allowed scopes and propagation flavor.
type QualifierDecl struct {
	Name    string
	Type    Type
	Value   Value
	IsArray bool
	Scopes  Scope
	Flavor  Flavor
}

// NewQualifierDecl makes new qualifier declaration with default flavor.
func NewQualifierDecl(name string, t Type, dflt Value, scopes Scope) *QualifierDecl {
	return &QualifierDecl{
		Name:   name,
		Type:   t,
		Value:  dflt,
		Scopes: scopes,
		Flavor: DefaultFlavor(),
	}
}

// Clone returns a copy of the declaration.
func (qd *QualifierDecl) Clone() *QualifierDecl {
	c := *qd
	c.Value = CloneValue(qd.Value)
	return &c
}

// Qualifier is a qualifier value attached to a class, property, method or
// parameter.
type Qualifier struct {
	Name  string
	Type  Type
	Value Value

	// Propagated is true on qualifiers inherited from a superclass element
	// during class resolution.
	Propagated bool

	Flavor Flavor
}

// NewQualifier makes new qualifier with default flavor.
func NewQualifier(name string, t Type, value Value) *Qualifier {
	return &Qualifier{
		Name:   name,
		Type:   t,
		Value:  value,
		Flavor: DefaultFlavor(),
	}
}

// Clone returns a copy of the qualifier.
func (q *Qualifier) Clone() *Qualifier {
	c := *q
	c.Value = CloneValue(q.Value)
	return &c
}

// QualifiersOf builds an ordered qualifier set from the given qualifiers.
func QualifiersOf(qq ...*Qualifier) *NocaseMap[*Qualifier] {
	m := NewNocaseMap[*Qualifier]()
	for _, q := range qq {
		m.Set(q.Name, q)
	}
	return m
}

// Well known qualifier names the repository assigns semantics to.
const (
	// QualifierNameKey marks a key property. Presence of the qualifier is
	// enough, its value is not inspected.
	QualifierNameKey = "Key"

	// QualifierNameEmbeddedInstance marks a string property holding an
	// embedded instance; the qualifier value names the instance class.
	QualifierNameEmbeddedInstance = "EmbeddedInstance"
)

/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

// Property is a class or instance property.
type Property struct {
	Name  string
	Type  Type
	Value Value

	IsArray   bool
	ArraySize int

	// ReferenceClass names the class a Type_reference property points to.
	ReferenceClass string

	// ClassOrigin names the class the property was first defined in.
	// Assigned during class resolution.
	ClassOrigin string

	// Propagated is true on properties inherited from a superclass during
	// class resolution.
	Propagated bool

	Qualifiers *NocaseMap[*Qualifier]
}

// NewProperty makes new property of specified type.
func NewProperty(name string, t Type, qq ...*Qualifier) *Property {
	return &Property{
		Name:       name,
		Type:       t,
		Qualifiers: QualifiersOf(qq...),
	}
}

// NewRefProperty makes new reference property pointing to the specified
// class.
func NewRefProperty(name, refClass string, qq ...*Qualifier) *Property {
	p := NewProperty(name, Type_reference, qq...)
	p.ReferenceClass = refClass
	return p
}

// IsKey returns is the property marked with the Key qualifier. Presence
// of the qualifier is enough, its value is not inspected.
func (p *Property) IsKey() bool {
	return p.Qualifiers.Has(QualifierNameKey)
}

// Clone returns a deep copy of the property.
func (p *Property) Clone() *Property {
	c := *p
	c.Value = CloneValue(p.Value)
	c.Qualifiers = p.Qualifiers.Clone((*Qualifier).Clone)
	return &c
}

// Parameter is a CIM method parameter.
type Parameter struct {
	Name string
	Type Type

	IsArray bool

	// ReferenceClass names the class a Type_reference parameter points to.
	ReferenceClass string

	Qualifiers *NocaseMap[*Qualifier]
}

// NewParameter makes new parameter of specified type.
func NewParameter(name string, t Type, qq ...*Qualifier) *Parameter {
	return &Parameter{
		Name:       name,
		Type:       t,
		Qualifiers: QualifiersOf(qq...),
	}
}

// NewRefParameter makes new reference parameter pointing to the specified
// class.
func NewRefParameter(name, refClass string, qq ...*Qualifier) *Parameter {
	p := NewParameter(name, Type_reference, qq...)
	p.ReferenceClass = refClass
	return p
}

// Clone returns a deep copy of the parameter.
func (p *Parameter) Clone() *Parameter {
	c := *p
	c.Qualifiers = p.Qualifiers.Clone((*Qualifier).Clone)
	return &c
}

// Method is a CIM method declaration.
type Method struct {
	Name       string
	ReturnType Type

	// ClassOrigin names the class the method was first defined in.
	// Assigned during class resolution.
	ClassOrigin string

	// Propagated is true on methods inherited from a superclass during
	// class resolution.
	Propagated bool

	Parameters *NocaseMap[*Parameter]
	Qualifiers *NocaseMap[*Qualifier]
}

// NewMethod makes new method with specified return type.
func NewMethod(name string, returns Type, qq ...*Qualifier) *Method {
	return &Method{
		Name:       name,
		ReturnType: returns,
		Parameters: NewNocaseMap[*Parameter](),
		Qualifiers: QualifiersOf(qq...),
	}
}

// AddParameter appends parameters to the method. Returns the method to
// allow chained calls.
func (m *Method) AddParameter(pp ...*Parameter) *Method {
	for _, p := range pp {
		m.Parameters.Set(p.Name, p)
	}
	return m
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	c := *m
	c.Parameters = m.Parameters.Clone((*Parameter).Clone)
	c.Qualifiers = m.Qualifiers.Clone((*Qualifier).Clone)
	return &c
}

// Class is a CIM class declaration.
//
// A class freshly built by a client carries only the members it defines
// itself. Class resolution merges inherited members in, marks them as
// propagated and assigns class origins, see the repository CreateClass
// and GetClass operations.
type Class struct {
	ClassName  string
	SuperClass string

	Qualifiers *NocaseMap[*Qualifier]
	Properties *NocaseMap[*Property]
	Methods    *NocaseMap[*Method]
}

// NewClass makes new class with specified name and superclass. Empty
// superclass makes a root class.
func NewClass(className, superClass string, qq ...*Qualifier) *Class {
	return &Class{
		ClassName:  className,
		SuperClass: superClass,
		Qualifiers: QualifiersOf(qq...),
		Properties: NewNocaseMap[*Property](),
		Methods:    NewNocaseMap[*Method](),
	}
}

// AddProperty appends properties to the class. Returns the class to allow
// chained calls.
func (c *Class) AddProperty(pp ...*Property) *Class {
	for _, p := range pp {
		c.Properties.Set(p.Name, p)
	}
	return c
}

// AddMethod appends methods to the class. Returns the class to allow
// chained calls.
func (c *Class) AddMethod(mm ...*Method) *Class {
	for _, m := range mm {
		c.Methods.Set(m.Name, m)
	}
	return c
}

// KeyPropertyNames returns names of properties marked with the Key
// qualifier, in declaration order.
func (c *Class) KeyPropertyNames() []string {
	kk := []string{}
	c.Properties.Enum(func(name string, p *Property) {
		if p.IsKey() {
			kk = append(kk, name)
		}
	})
	return kk
}

// Clone returns a deep copy of the class.
func (c *Class) Clone() *Class {
	cc := *c
	cc.Qualifiers = c.Qualifiers.Clone((*Qualifier).Clone)
	cc.Properties = c.Properties.Clone((*Property).Clone)
	cc.Methods = c.Methods.Clone((*Method).Clone)
	return &cc
}

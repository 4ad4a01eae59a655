/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

// Instance is a CIM instance: a set of property values of some class,
// identified by its path once stored.
type Instance struct {
	ClassName string

	Properties *NocaseMap[*Property]
	Qualifiers *NocaseMap[*Qualifier]

	// Path identifies the instance within a namespace. The repository
	// builds the path from the class key properties at creation if the
	// client did not supply one.
	Path *Path
}

// NewInstance makes new instance of specified class with no properties.
func NewInstance(className string) *Instance {
	return &Instance{
		ClassName:  className,
		Properties: NewNocaseMap[*Property](),
		Qualifiers: NewNocaseMap[*Qualifier](),
	}
}

// SetProperty assigns a property value. Returns the instance to allow
// chained calls.
func (i *Instance) SetProperty(name string, t Type, value Value) *Instance {
	p := NewProperty(name, t)
	p.Value = value
	i.Properties.Set(name, p)
	return i
}

// PropertyValue returns the value of the named property.
func (i *Instance) PropertyValue(name string) (Value, bool) {
	if p, ok := i.Properties.Get(name); ok {
		return p.Value, true
	}
	return nil, false
}

// Clone returns a deep copy of the instance, path included.
func (i *Instance) Clone() *Instance {
	c := *i
	c.Properties = i.Properties.Clone((*Property).Clone)
	c.Qualifiers = i.Qualifiers.Clone((*Qualifier).Clone)
	c.Path = i.Path.Clone()
	return &c
}

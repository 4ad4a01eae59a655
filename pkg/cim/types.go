/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

// Package cim provides the CIM (Common Information Model) object model:
// qualifier declarations, classes with properties and methods, instances
// and instance paths, the ordered case-insensitive containers they are
// built from, and the error taxonomy shared by repository operations.
package cim

import "strconv"

// Type is an intrinsic CIM data type of a property, parameter or
// qualifier value.
type Type uint8

const (
	Type_null Type = iota

	Type_boolean
	Type_string
	Type_char16

	Type_uint8
	Type_sint8
	Type_uint16
	Type_sint16
	Type_uint32
	Type_sint32
	Type_uint64
	Type_sint64

	Type_real32
	Type_real64

	Type_datetime

	// Reference to another class. Properties and parameters of this type
	// name the referenced class, see Property.ReferenceClass.
	Type_reference

	Type_FakeLast
)

var typeNames = [Type_FakeLast]string{
	"null",
	"boolean", "string", "char16",
	"uint8", "sint8", "uint16", "sint16",
	"uint32", "sint32", "uint64", "sint64",
	"real32", "real64",
	"datetime",
	"reference",
}

// String renders the type in its MOF spelling («uint32», «reference», …).
func (t Type) String() string {
	if t < Type_FakeLast {
		return typeNames[t]
	}
	const base = 10
	return "Type(" + strconv.FormatUint(uint64(t), base) + ")"
}

// IsInteger returns is the type a signed or unsigned integer type.
func (t Type) IsInteger() bool {
	return (t >= Type_uint8) && (t <= Type_sint64)
}

// IsKeyCompatible returns is the type usable as an instance key binding.
// Real types can not be keys.
func (t Type) IsKeyCompatible() bool {
	switch t {
	case Type_boolean, Type_string, Type_char16, Type_datetime, Type_reference:
		return true
	}
	return t.IsInteger()
}

// Value holds a CIM property, parameter, qualifier or key binding value.
//
// Scalar values use bool, string, the sized Go integers, float32 and
// float64, or *Path for references; arrays use []Value; embedded
// instances use *Instance; an absent value is untyped nil.
type Value = any

// CloneValue returns a deep copy of a value: arrays, embedded instances
// and reference paths are copied, scalars are returned as is.
func CloneValue(v Value) Value {
	switch vv := v.(type) {
	case []Value:
		out := make([]Value, len(vv))
		for i, e := range vv {
			out[i] = CloneValue(e)
		}
		return out
	case *Instance:
		return vv.Clone()
	case *Path:
		return vv.Clone()
	}
	return v
}

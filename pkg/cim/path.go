/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

import (
	"fmt"
	"strconv"
	"strings"

	bytespool "github.com/valyala/bytebufferpool"
	"golang.org/x/exp/slices"
)

// Path identifies a CIM instance: a class name plus key bindings,
// optionally qualified by namespace and host.
//
// Paths render in WBEM URI style:
//
//	//srv1/root/cimv2:CIM_Foo.InstanceID="Foo1",Index=42
//
// Class, namespace, host and key binding names compare case-insensitively;
// string key values compare case-sensitively. See CanonicalKey.
type Path struct {
	Host      string
	Namespace string
	ClassName string

	KeyBindings *NocaseMap[Value]
}

// NewPath makes new path for specified class with no key bindings.
func NewPath(className string) *Path {
	return &Path{
		ClassName:   className,
		KeyBindings: NewNocaseMap[Value](),
	}
}

// SetKey assigns a key binding. Returns the path to allow chained calls.
func (p *Path) SetKey(name string, value Value) *Path {
	p.KeyBindings.Set(name, value)
	return p
}

// Clone returns a deep copy of the path. Safe to call on a nil path.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	c := *p
	c.KeyBindings = p.KeyBindings.Clone(CloneValue)
	return &c
}

// String renders the path in WBEM URI style. Key bindings keep their
// stored order and spelling.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	if p.Host != "" {
		buf.WriteString("//")
		buf.WriteString(p.Host)
		buf.WriteString("/")
	}
	if p.Namespace != "" {
		buf.WriteString(p.Namespace)
		buf.WriteString(":")
	}
	buf.WriteString(p.ClassName)

	sep := "."
	p.KeyBindings.Enum(func(name string, value Value) {
		buf.WriteString(sep)
		buf.WriteString(name)
		buf.WriteString("=")
		writeKeyValue(buf, value, false)
		sep = ","
	})
	return buf.String()
}

// CanonicalKey renders the caseless identity of the path: host, namespace,
// class and key binding names folded, key bindings sorted by folded name.
// String key values stay byte exact. Two paths identify the same instance
// iff their canonical keys are equal.
func (p *Path) CanonicalKey() string {
	if p == nil {
		return ""
	}
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	buf.WriteString(FoldName(p.Host))
	buf.WriteString("\n")
	buf.WriteString(FoldName(p.Namespace))
	buf.WriteString("\n")
	buf.WriteString(FoldName(p.ClassName))

	names := make([]string, 0, p.KeyBindings.Len())
	p.KeyBindings.Enum(func(name string, _ Value) {
		names = append(names, FoldName(name))
	})
	slices.Sort(names)

	for _, n := range names {
		v, _ := p.KeyBindings.Get(n)
		buf.WriteString("\n")
		buf.WriteString(n)
		buf.WriteString("=")
		writeKeyValue(buf, v, true)
	}
	return buf.String()
}

// Equal returns is both paths identify the same instance.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.CanonicalKey() == o.CanonicalKey()
}

// writeKeyValue renders a key binding value. Canonical rendering is used
// for CanonicalKey and folds nested reference paths.
func writeKeyValue(buf *bytespool.ByteBuffer, value Value, canonical bool) {
	switch v := value.(type) {
	case nil:
		buf.WriteString("NULL")
	case string:
		buf.WriteString(strconv.Quote(v))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(v, 10))
	case float32:
		buf.WriteString(formatReal(float64(v), 32))
	case float64:
		buf.WriteString(formatReal(v, 64))
	case *Path:
		if canonical {
			buf.WriteString(strconv.Quote(v.CanonicalKey()))
		} else {
			buf.WriteString(strconv.Quote(v.String()))
		}
	default:
		buf.WriteString(strconv.Quote(asString(v)))
	}
}

// formatReal keeps a fraction or exponent in the rendering, so a real
// key value never reads back as an integer.
func formatReal(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func asString(v Value) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// PathFromInstance builds the path of an instance of the specified class:
// one key binding per class key property, named and ordered as the class
// declares them, valued from the instance.
//
// Returns an invalid parameter error if the class declares no key
// properties or the instance misses one of them.
func PathFromInstance(cls *Class, inst *Instance, namespace string) (*Path, error) {
	keys := cls.KeyPropertyNames()
	if len(keys) == 0 {
		return nil, ErrInvalidParameter("class «%s» declares no key properties", cls.ClassName)
	}

	p := NewPath(cls.ClassName)
	p.Namespace = namespace
	for _, k := range keys {
		ip, ok := inst.Properties.Get(k)
		if !ok {
			return nil, ErrInvalidParameter("key property «%s» of class «%s» is missing from the instance", k, cls.ClassName)
		}
		p.SetKey(k, CloneValue(ip.Value))
	}
	return p, nil
}

// ParsePath parses a WBEM URI style instance path, the format String
// renders.
//
// Key values parse as string (quoted, Go escaping), bool («true» and
// «false», case ignored), NULL, int64, uint64 for values above the int64
// range, and float64 for values with a fraction or exponent. Reference
// values parse as plain strings.
func ParsePath(s string) (*Path, error) {
	bad := func(msg string, args ...any) error {
		detail := msg
		if len(args) > 0 {
			detail = fmt.Sprintf(msg, args...)
		}
		return ErrInvalidParameter("invalid instance path «%s»: %s", s, detail)
	}

	rest := s
	p := NewPath("")

	if strings.HasPrefix(rest, "//") {
		slash := strings.IndexByte(rest[2:], '/')
		if slash < 0 {
			return nil, bad("host is not followed by a namespace or class")
		}
		p.Host = rest[2 : 2+slash]
		if p.Host == "" {
			return nil, bad("empty host")
		}
		rest = rest[2+slash+1:]
	}

	head := rest
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		head = rest[:dot]
		rest = rest[dot+1:]
	} else {
		rest = ""
	}

	if colon := strings.LastIndexByte(head, ':'); colon >= 0 {
		p.Namespace = head[:colon]
		head = head[colon+1:]
	}
	if head == "" {
		return nil, bad("empty class name")
	}
	p.ClassName = head

	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, bad("key binding «%s» has no value", rest)
		}
		name := rest[:eq]
		rest = rest[eq+1:]

		var value Value
		if strings.HasPrefix(rest, `"`) {
			end := quotedEnd(rest)
			if end < 0 {
				return nil, bad("unterminated string value of key «%s»", name)
			}
			str, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, bad("malformed string value of key «%s»", name)
			}
			value = str
			rest = rest[end+1:]
		} else {
			lit := rest
			if comma := strings.IndexByte(rest, ','); comma >= 0 {
				lit = rest[:comma]
				rest = rest[comma:]
			} else {
				rest = ""
			}
			v, err := parseKeyLiteral(lit)
			if err != nil {
				return nil, bad("malformed value «%s» of key «%s»", lit, name)
			}
			value = v
		}

		p.SetKey(name, value)

		if rest != "" {
			if !strings.HasPrefix(rest, ",") {
				return nil, bad("key bindings are not comma separated")
			}
			rest = rest[1:]
			if rest == "" {
				return nil, bad("trailing comma after key bindings")
			}
		}
	}

	if p.KeyBindings.Len() == 0 && strings.HasSuffix(s, ".") {
		return nil, bad("empty key binding list")
	}
	return p, nil
}

// MustParsePath parses a WBEM URI style instance path, panics on error.
func MustParsePath(s string) *Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// quotedEnd returns the index of the closing unescaped quote of a string
// starting with one, or -1.
func quotedEnd(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func parseKeyLiteral(lit string) (Value, error) {
	switch strings.ToLower(lit) {
	case "null":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if strings.ContainsAny(lit, ".eE") {
		return strconv.ParseFloat(lit, 64)
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseUint(lit, 10, 64)
}

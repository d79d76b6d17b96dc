package constant

import "fmt"

// Constant is the closed tagged-variant set a constant pool slot can hold.
// Every concrete type below is a plain comparable struct (no slices or maps)
// so that Constant values can key the pool's backward (value -> index) map
// directly, which is what dedup-on-add relies on.
type Constant interface {
	// Tag returns the wire tag byte for this variant. UnresolvedIndex, which
	// is never written, returns 0.
	Tag() uint8
	fmt.Stringer
}

// UnresolvedIndex is the transient, non-serialized sentinel returned by pool
// lookups for a position that has not (yet) been bound to a constant. It is
// never written; Pool.Write skips it (which can only happen for the unused
// second slot of a wide entry).
type UnresolvedIndex struct {
	N uint16
}

func (i UnresolvedIndex) Tag() uint8     { return 0 }
func (i UnresolvedIndex) String() string { return fmt.Sprintf("Index(%d)", i.N) }

// Utf8 holds a decoded MUTF-8 string.
type Utf8 struct {
	Value string
}

func (c Utf8) Tag() uint8     { return TagUtf8 }
func (c Utf8) String() string { return fmt.Sprintf("Utf8(%q)", c.Value) }

// Integer holds a 32-bit signed integer constant.
type Integer struct {
	Value int32
}

func (c Integer) Tag() uint8     { return TagInteger }
func (c Integer) String() string { return fmt.Sprintf("Integer(%d)", c.Value) }

// Float holds a 32-bit IEEE-754 float constant.
type Float struct {
	Value float32
}

func (c Float) Tag() uint8     { return TagFloat }
func (c Float) String() string { return fmt.Sprintf("Float(%v)", c.Value) }

// Long holds a 64-bit signed integer constant. It is wide: it consumes two
// consecutive pool indices.
type Long struct {
	Value int64
}

func (c Long) Tag() uint8     { return TagLong }
func (c Long) String() string { return fmt.Sprintf("Long(%d)", c.Value) }

// Double holds a 64-bit IEEE-754 float constant. It is wide.
type Double struct {
	Value float64
}

func (c Double) Tag() uint8     { return TagDouble }
func (c Double) String() string { return fmt.Sprintf("Double(%v)", c.Value) }

// Class holds the internal (slash-separated) name of a class or interface,
// e.g. "java/lang/Object".
type Class struct {
	Name string
}

func (c Class) Tag() uint8     { return TagClass }
func (c Class) String() string { return fmt.Sprintf("Class(%s)", c.Name) }

// String holds a java.lang.String literal's value.
type String struct {
	Value string
}

func (c String) Tag() uint8     { return TagString }
func (c String) String() string { return fmt.Sprintf("String(%q)", c.Value) }

// NameAndType pairs a member name with its raw descriptor string.
type NameAndType struct {
	Name       string
	Descriptor string
}

func (c NameAndType) Tag() uint8 { return TagNameAndType }
func (c NameAndType) String() string {
	return fmt.Sprintf("NameAndType(%s %s)", c.Name, c.Descriptor)
}

// FieldRef references a field by owning class and name-and-type.
type FieldRef struct {
	Class       Class
	NameAndType NameAndType
}

func (c FieldRef) Tag() uint8 { return TagFieldref }
func (c FieldRef) String() string {
	return fmt.Sprintf("Fieldref(%s.%s)", c.Class.Name, c.NameAndType.Name)
}

// MethodRef references a method by owning class and name-and-type.
type MethodRef struct {
	Class       Class
	NameAndType NameAndType
}

func (c MethodRef) Tag() uint8 { return TagMethodref }
func (c MethodRef) String() string {
	return fmt.Sprintf("Methodref(%s.%s)", c.Class.Name, c.NameAndType.Name)
}

// InterfaceMethodRef references an interface method by owning class and
// name-and-type.
type InterfaceMethodRef struct {
	Class       Class
	NameAndType NameAndType
}

func (c InterfaceMethodRef) Tag() uint8 { return TagInterfaceMethodref }
func (c InterfaceMethodRef) String() string {
	return fmt.Sprintf("InterfaceMethodref(%s.%s)", c.Class.Name, c.NameAndType.Name)
}

// MethodHandle references a Field/Method/InterfaceMethodRef constant together
// with a reference kind classifying the get/put/invoke family. Referent holds
// one of FieldRef, MethodRef or InterfaceMethodRef; the core does not enforce
// that RefKind agrees with Referent's variant (see lookupHandleReferent).
type MethodHandle struct {
	RefKind  uint8
	Referent Constant
}

func (c MethodHandle) Tag() uint8 { return TagMethodHandle }
func (c MethodHandle) String() string {
	return fmt.Sprintf("MethodHandle(kind=%d, %s)", c.RefKind, c.Referent)
}

// MethodType holds a raw method descriptor string.
type MethodType struct {
	Descriptor string
}

func (c MethodType) Tag() uint8     { return TagMethodType }
func (c MethodType) String() string { return fmt.Sprintf("MethodType(%s)", c.Descriptor) }

// Dynamic references a bootstrap method (by index into the class's
// BootstrapMethods attribute, not the pool) and a name-and-type.
type Dynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndType              NameAndType
}

func (c Dynamic) Tag() uint8 { return TagDynamic }
func (c Dynamic) String() string {
	return fmt.Sprintf("Dynamic(bsm=%d, %s)", c.BootstrapMethodAttrIndex, c.NameAndType)
}

// InvokeDynamic references a bootstrap method and a name-and-type.
type InvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndType              NameAndType
}

func (c InvokeDynamic) Tag() uint8 { return TagInvokeDynamic }
func (c InvokeDynamic) String() string {
	return fmt.Sprintf("InvokeDynamic(bsm=%d, %s)", c.BootstrapMethodAttrIndex, c.NameAndType)
}

// Module holds a module name.
type Module struct {
	Name string
}

func (c Module) Tag() uint8     { return TagModule }
func (c Module) String() string { return fmt.Sprintf("Module(%s)", c.Name) }

// Package holds a package name.
type Package struct {
	Name string
}

func (c Package) Tag() uint8     { return TagPackage }
func (c Package) String() string { return fmt.Sprintf("Package(%s)", c.Name) }

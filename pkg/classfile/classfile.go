package classfile

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/constant"
)

const magic uint32 = 0xCAFEBABE

// Class access flags (JVMS 4.1), the ones the core needs to round-trip.
const (
	AccPublic     uint16 = 0x0001
	AccFinal      uint16 = 0x0010
	AccSuper      uint16 = 0x0020
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccSynthetic  uint16 = 0x1000
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
	AccModule     uint16 = 0x8000
)

// ClassSource resolves a class by its internal (slash-separated) name. It is
// the narrow lookup surface for finding an owner class that was loaded
// separately (a reference tuple's owner, an exception edge's catch type);
// classfile and cfg do not call it themselves. It is not a class loader in
// the JVM-semantic sense (see internal/registry).
type ClassSource interface {
	Resolve(name string) (*ClassFile, error)
}

// MemberReference is the (owner_class, name, descriptor) tuple a Field or
// Method exposes for use inside cfg instructions, without forcing every
// caller to go back through the pool.
type MemberReference struct {
	Owner      string
	Name       string
	Descriptor string
}

// AttributeInfo is a raw, name-keyed attribute blob. Everything except the
// Code attribute on a method and the BootstrapMethods attribute on a class
// stays opaque at this layer — the full attribute ecosystem is an external
// concern (spec scope).
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is one entry of a Code attribute's exception table.
// CatchType is nil for a catch-all (the `finally` encoding, catch_type = 0).
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType *constant.Class
}

// CodeAttribute is the decoded form of a method's Code attribute: the raw
// material cfg.BuildFromCode slices into a block graph. Nested attributes
// (LineNumberTable, StackMapTable, ...) stay opaque.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	Attributes        []AttributeInfo
}

// BootstrapMethod is one entry of the class-level BootstrapMethods attribute:
// a method handle plus its static bootstrap arguments (each a loadable
// constant — String, Class, Integer, Float, Long, Double, MethodHandle,
// MethodType, or Dynamic).
type BootstrapMethod struct {
	Method    constant.MethodHandle
	Arguments []constant.Constant
}

// Field is one field_info entry, generalized with a back-reference to its
// owning class and (if a parser was supplied) its parsed descriptor type.
type Field struct {
	Owner       *ClassFile
	AccessFlags uint16
	Name        string
	Descriptor  string
	Type        any
	Attributes  []AttributeInfo
}

// Reference returns the (owner_class, name, descriptor) tuple suitable for
// use inside a cfg instruction.
func (f *Field) Reference() MemberReference {
	return MemberReference{Owner: f.Owner.ClassName(), Name: f.Name, Descriptor: f.Descriptor}
}

// Method is one method_info entry, generalized with a back-reference to its
// owning class, parsed argument/return types (if a parser was supplied), and
// a decoded Code attribute when one is present.
type Method struct {
	Owner       *ClassFile
	AccessFlags uint16
	Name        string
	Descriptor  string
	ArgTypes    []any
	RetType     any
	Code        *CodeAttribute
	Attributes  []AttributeInfo
}

// Reference returns the (owner_class, name, descriptor) tuple suitable for
// use inside a cfg instruction.
func (m *Method) Reference() MemberReference {
	return MemberReference{Owner: m.Owner.ClassName(), Name: m.Name, Descriptor: m.Descriptor}
}

// ClassFile owns a constant pool and the metadata that points into it:
// version, access flags, this/super class, interfaces, fields, methods, and
// class-level attributes.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *ConstantPool
	AccessFlags  uint16
	ThisClass    constant.Class
	SuperClass   *constant.Class // nil iff ThisClass is java/lang/Object
	Interfaces   []constant.Class
	Fields       []*Field
	Methods      []*Method
	Attributes   []AttributeInfo
	BootstrapMethods []BootstrapMethod
}

// ClassName returns the this-class's internal name.
func (cf *ClassFile) ClassName() string {
	return cf.ThisClass.Name
}

// FindMethod finds a method by name and descriptor, or nil.
func (cf *ClassFile) FindMethod(name, descriptor string) *Method {
	for _, m := range cf.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindField finds a field by name and descriptor, or nil.
func (cf *ClassFile) FindField(name, descriptor string) *Field {
	for _, f := range cf.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}

// FieldDescriptorParser parses a field descriptor string into a caller-owned
// Type representation. Descriptor grammar is an external concern (spec
// scope); classfile only consumes it as a pure function.
type FieldDescriptorParser func(descriptor string) (any, error)

// MethodDescriptorParser parses a method descriptor string into argument and
// return types.
type MethodDescriptorParser func(descriptor string) (argTypes []any, retType any, err error)

// Options configures Read. Every field is optional; a zero Options decodes
// the full structure except descriptor types, which are left nil.
type Options struct {
	ParseFieldDescriptor  FieldDescriptorParser
	ParseMethodDescriptor MethodDescriptorParser
	// Source carries a ClassSource alongside the other options. Read does not
	// consult it: catch types and reference tuples are resolved against this
	// file's own pool only. It performs no resolution-order or visibility
	// checking — see ClassSource.
	Source ClassSource
}

// Read decodes a complete .class file from r. Decode errors abandon the
// partial pool and structure — on any error the returned *ClassFile is nil.
// ctx is checked once at entry only: per the single-threaded resource model,
// there is no mid-operation cancellation surface, so a caller-side deadline
// can only abort between whole read operations, not partway through one.
func Read(ctx context.Context, r *binio.Reader, opts Options) (*ClassFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	got, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading magic number")
	}
	if got != magic {
		return nil, errors.Newf("invalid magic number: 0x%08X (expected 0xCAFEBABE)", got)
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = r.ReadU16(); err != nil {
		return nil, errors.Wrap(err, "reading minor version")
	}
	if cf.MajorVersion, err = r.ReadU16(); err != nil {
		return nil, errors.Wrap(err, "reading major version")
	}

	pool, err := ReadPool(r, cf.MajorVersion)
	if err != nil {
		return nil, errors.Wrap(err, "reading constant pool")
	}
	cf.Pool = pool

	if cf.AccessFlags, err = r.ReadU16(); err != nil {
		return nil, errors.Wrap(err, "reading access flags")
	}

	thisIdx, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading this_class")
	}
	thisClass, err := resolveClass(pool, thisIdx)
	if err != nil {
		return nil, errors.Wrap(err, "resolving this_class")
	}
	cf.ThisClass = thisClass

	superIdx, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading super_class")
	}
	if superIdx != 0 {
		superClass, err := resolveClass(pool, superIdx)
		if err != nil {
			return nil, errors.Wrap(err, "resolving super_class")
		}
		cf.SuperClass = &superClass
	}

	interfacesCount, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading interfaces_count")
	}
	cf.Interfaces = make([]constant.Class, interfacesCount)
	for i := range cf.Interfaces {
		idx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading interface %d", i)
		}
		cls, err := resolveClass(pool, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving interface %d", i)
		}
		cf.Interfaces[i] = cls
	}

	if cf.Fields, err = readFields(r, cf, pool, opts); err != nil {
		return nil, errors.Wrap(err, "reading fields")
	}
	if cf.Methods, err = readMethods(r, cf, pool, opts); err != nil {
		return nil, errors.Wrap(err, "reading methods")
	}

	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, errors.Wrap(err, "reading class attributes")
	}
	for _, attr := range attrs {
		if attr.Name == "BootstrapMethods" {
			bms, err := decodeBootstrapMethods(attr.Data, pool)
			if err != nil {
				return nil, errors.Wrap(err, "decoding BootstrapMethods")
			}
			cf.BootstrapMethods = bms
			continue
		}
		cf.Attributes = append(cf.Attributes, attr)
	}

	return cf, nil
}

func resolveClass(pool *ConstantPool, index uint16) (constant.Class, error) {
	c, err := pool.GetRaise(index)
	if err != nil {
		return constant.Class{}, err
	}
	cls, ok := c.(constant.Class)
	if !ok {
		return constant.Class{}, constant.NewKindMismatchError("Class", constant.Name(c.Tag()), index)
	}
	return cls, nil
}

// Write serializes cf. It first materializes every constant the structure
// references (this_class, super_class, interfaces, field/method names and
// descriptors, attribute names, Code and BootstrapMethods sub-entries) into
// cf.Pool via Add — a no-op index reuse for anything already present — so
// that the pool section, written before the rest of the header per the wire
// format, already contains exactly what the rest of the bytes reference.
func Write(ctx context.Context, cf *ClassFile, w *binio.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.WriteU32(magic); err != nil {
		return errors.Wrap(err, "writing magic number")
	}
	if err := w.WriteU16(cf.MinorVersion); err != nil {
		return errors.Wrap(err, "writing minor version")
	}
	if err := w.WriteU16(cf.MajorVersion); err != nil {
		return errors.Wrap(err, "writing major version")
	}

	var headerBody, tailBody bytes.Buffer
	hw := binio.NewWriter(&headerBody)
	tw := binio.NewWriter(&tailBody)

	if err := cf.writeHeaderFields(hw); err != nil {
		return errors.Wrap(err, "writing class header fields")
	}
	if err := cf.writeFields(tw); err != nil {
		return errors.Wrap(err, "writing fields")
	}
	if err := cf.writeMethods(tw); err != nil {
		return errors.Wrap(err, "writing methods")
	}
	if err := cf.writeClassAttributes(tw); err != nil {
		return errors.Wrap(err, "writing class attributes")
	}

	// The pool is serialized only now, once every Add call the sections
	// above triggered has landed, so its byte count reflects all of them.
	if err := cf.Pool.Write(w); err != nil {
		return errors.Wrap(err, "writing constant pool")
	}
	if err := w.WriteBytes(headerBody.Bytes()); err != nil {
		return err
	}
	return w.WriteBytes(tailBody.Bytes())
}

func (cf *ClassFile) writeHeaderFields(w *binio.Writer) error {
	thisIdx := cf.Pool.Add(cf.ThisClass)
	var superIdx uint16
	if cf.SuperClass != nil {
		superIdx = cf.Pool.Add(*cf.SuperClass)
	}

	if err := w.WriteU16(cf.AccessFlags); err != nil {
		return err
	}
	if err := w.WriteU16(thisIdx); err != nil {
		return err
	}
	if err := w.WriteU16(superIdx); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(cf.Interfaces))); err != nil {
		return err
	}
	for _, iface := range cf.Interfaces {
		if err := w.WriteU16(cf.Pool.Add(iface)); err != nil {
			return err
		}
	}
	return nil
}

func (cf *ClassFile) writeFields(w *binio.Writer) error {
	if err := w.WriteU16(uint16(len(cf.Fields))); err != nil {
		return err
	}
	for _, f := range cf.Fields {
		if err := w.WriteU16(f.AccessFlags); err != nil {
			return err
		}
		if err := w.WriteU16(cf.Pool.AddUtf8(f.Name)); err != nil {
			return err
		}
		if err := w.WriteU16(cf.Pool.AddUtf8(f.Descriptor)); err != nil {
			return err
		}
		if err := writeAttributeList(w, cf.Pool, f.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func writeAttributeList(w *binio.Writer, pool *ConstantPool, attrs []AttributeInfo) error {
	if err := w.WriteU16(uint16(len(attrs))); err != nil {
		return err
	}
	for _, attr := range attrs {
		if err := writeAttribute(w, pool, attr); err != nil {
			return err
		}
	}
	return nil
}

func writeAttribute(w *binio.Writer, pool *ConstantPool, attr AttributeInfo) error {
	if err := w.WriteU16(pool.AddUtf8(attr.Name)); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(attr.Data))); err != nil {
		return err
	}
	return w.WriteBytes(attr.Data)
}

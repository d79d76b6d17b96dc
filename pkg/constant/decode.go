package constant

import (
	"github.com/ogclass/classpool/pkg/binio"
)

// Deferred is the small tuple of raw pool indices a reference-bearing
// constant's byte form decodes to before its referents are known. Which
// fields are meaningful depends on Tag; see Dereference.
type Deferred struct {
	Tag     uint8
	Index1  uint16
	Index2  uint16
	RefKind uint8
}

// Decode reads one constant's payload (the tag byte itself has already been
// consumed by the caller, per the pool's read loop) and returns either a
// fully resolved Constant (primitive-valued variants) or a Deferred
// descriptor the pool's fix-up loop must later resolve (reference-bearing
// variants).
func Decode(r *binio.Reader, tag uint8, majorVersion uint16) (Constant, *Deferred, error) {
	if !KnownTag(tag) {
		return nil, nil, NewUnknownTagError(tag)
	}
	since := SinceVersion(tag)
	if majorVersion < since {
		return nil, nil, NewVersionTooLowError(Name(tag), since, majorVersion)
	}

	switch tag {
	case TagUtf8:
		raw, err := r.ReadUtf8Bytes()
		if err != nil {
			return nil, nil, err
		}
		return Utf8{Value: binio.DecodeMUTF8(raw)}, nil, nil

	case TagInteger:
		v, err := r.ReadI32()
		if err != nil {
			return nil, nil, err
		}
		return Integer{Value: v}, nil, nil

	case TagFloat:
		v, err := r.ReadF32()
		if err != nil {
			return nil, nil, err
		}
		return Float{Value: v}, nil, nil

	case TagLong:
		v, err := r.ReadI64()
		if err != nil {
			return nil, nil, err
		}
		return Long{Value: v}, nil, nil

	case TagDouble:
		v, err := r.ReadF64()
		if err != nil {
			return nil, nil, err
		}
		return Double{Value: v}, nil, nil

	case TagClass:
		nameIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: nameIndex}, nil

	case TagString:
		stringIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: stringIndex}, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		natIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: classIndex, Index2: natIndex}, nil

	case TagNameAndType:
		nameIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		descIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: nameIndex, Index2: descIndex}, nil

	case TagMethodHandle:
		refKind, err := r.ReadU8()
		if err != nil {
			return nil, nil, err
		}
		refIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: refIndex, RefKind: refKind}, nil

	case TagMethodType:
		descIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: descIndex}, nil

	case TagDynamic, TagInvokeDynamic:
		bsmIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		natIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: bsmIndex, Index2: natIndex}, nil

	case TagModule, TagPackage:
		nameIndex, err := r.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		return nil, &Deferred{Tag: tag, Index1: nameIndex}, nil
	}

	// Unreachable: KnownTag already filtered to the switch's cases.
	return nil, nil, NewUnknownTagError(tag)
}

func lookupUtf8(forward map[uint16]Constant, index uint16) (Utf8, bool, error) {
	c, ok := forward[index]
	if !ok {
		return Utf8{}, true, nil
	}
	u, ok := c.(Utf8)
	if !ok {
		return Utf8{}, false, NewKindMismatchError("Utf8", Name(c.Tag()), index)
	}
	return u, false, nil
}

func lookupClass(forward map[uint16]Constant, index uint16) (Class, bool, error) {
	c, ok := forward[index]
	if !ok {
		return Class{}, true, nil
	}
	cls, ok := c.(Class)
	if !ok {
		return Class{}, false, NewKindMismatchError("Class", Name(c.Tag()), index)
	}
	return cls, false, nil
}

func lookupNameAndType(forward map[uint16]Constant, index uint16) (NameAndType, bool, error) {
	c, ok := forward[index]
	if !ok {
		return NameAndType{}, true, nil
	}
	nat, ok := c.(NameAndType)
	if !ok {
		return NameAndType{}, false, NewKindMismatchError("NameAndType", Name(c.Tag()), index)
	}
	return nat, false, nil
}

// lookupHandleReferent accepts any of FieldRef/MethodRef/InterfaceMethodRef,
// per the documented MethodHandle leniency: the core does not check RefKind
// against the referent's actual variant.
func lookupHandleReferent(forward map[uint16]Constant, index uint16) (Constant, bool, error) {
	c, ok := forward[index]
	if !ok {
		return nil, true, nil
	}
	switch c.(type) {
	case FieldRef, MethodRef, InterfaceMethodRef:
		return c, false, nil
	default:
		return nil, false, NewKindMismatchError("FieldRef|Methodref|InterfaceMethodref", Name(c.Tag()), index)
	}
}

// Dereference promotes a Deferred descriptor to a resolved Constant given the
// pool's current index->constant map. It returns pending=true if any
// required referent is not yet present (the caller must re-enqueue), or an
// error if a present referent is of the wrong kind.
func Dereference(d *Deferred, forward map[uint16]Constant) (Constant, bool, error) {
	switch d.Tag {
	case TagClass:
		name, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return Class{Name: name.Value}, false, nil

	case TagString:
		val, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return String{Value: val.Value}, false, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		cls, pending, err := lookupClass(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		nat, pending, err := lookupNameAndType(forward, d.Index2)
		if pending || err != nil {
			return nil, pending, err
		}
		switch d.Tag {
		case TagFieldref:
			return FieldRef{Class: cls, NameAndType: nat}, false, nil
		case TagMethodref:
			return MethodRef{Class: cls, NameAndType: nat}, false, nil
		default:
			return InterfaceMethodRef{Class: cls, NameAndType: nat}, false, nil
		}

	case TagNameAndType:
		name, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		desc, pending, err := lookupUtf8(forward, d.Index2)
		if pending || err != nil {
			return nil, pending, err
		}
		return NameAndType{Name: name.Value, Descriptor: desc.Value}, false, nil

	case TagMethodHandle:
		referent, pending, err := lookupHandleReferent(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return MethodHandle{RefKind: d.RefKind, Referent: referent}, false, nil

	case TagMethodType:
		desc, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return MethodType{Descriptor: desc.Value}, false, nil

	case TagDynamic, TagInvokeDynamic:
		nat, pending, err := lookupNameAndType(forward, d.Index2)
		if pending || err != nil {
			return nil, pending, err
		}
		if d.Tag == TagDynamic {
			return Dynamic{BootstrapMethodAttrIndex: d.Index1, NameAndType: nat}, false, nil
		}
		return InvokeDynamic{BootstrapMethodAttrIndex: d.Index1, NameAndType: nat}, false, nil

	case TagModule:
		name, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return Module{Name: name.Value}, false, nil

	case TagPackage:
		name, pending, err := lookupUtf8(forward, d.Index1)
		if pending || err != nil {
			return nil, pending, err
		}
		return Package{Name: name.Value}, false, nil
	}

	return nil, false, NewUnknownTagError(d.Tag)
}

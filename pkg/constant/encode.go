package constant

import (
	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/binio"
)

// PoolAdder is the narrow slice of ConstantPool's surface that Encode needs:
// request (or reuse) the pool index of a referent constant. It lets this
// package encode reference-bearing constants without importing the classfile
// package that owns ConstantPool.
type PoolAdder interface {
	Add(c Constant) uint16
}

// Encode writes tag + payload for c, requesting pool indices for any
// referents of c through pool (deduplicating them against whatever the pool
// already holds).
func Encode(w *binio.Writer, c Constant, pool PoolAdder) error {
	if err := w.WriteU8(c.Tag()); err != nil {
		return err
	}
	return encodePayload(w, c, pool)
}

func encodePayload(w *binio.Writer, c Constant, pool PoolAdder) error {
	switch v := c.(type) {
	case Utf8:
		return w.WriteUtf8Bytes(binio.EncodeMUTF8(v.Value))

	case Integer:
		return w.WriteI32(v.Value)

	case Float:
		return w.WriteF32(v.Value)

	case Long:
		return w.WriteI64(v.Value)

	case Double:
		return w.WriteF64(v.Value)

	case Class:
		return w.WriteU16(pool.Add(Utf8{Value: v.Name}))

	case String:
		return w.WriteU16(pool.Add(Utf8{Value: v.Value}))

	case FieldRef:
		return encodeRef(w, pool, v.Class, v.NameAndType)
	case MethodRef:
		return encodeRef(w, pool, v.Class, v.NameAndType)
	case InterfaceMethodRef:
		return encodeRef(w, pool, v.Class, v.NameAndType)

	case NameAndType:
		if err := w.WriteU16(pool.Add(Utf8{Value: v.Name})); err != nil {
			return err
		}
		return w.WriteU16(pool.Add(Utf8{Value: v.Descriptor}))

	case MethodHandle:
		if err := w.WriteU8(v.RefKind); err != nil {
			return err
		}
		return w.WriteU16(pool.Add(v.Referent))

	case MethodType:
		return w.WriteU16(pool.Add(Utf8{Value: v.Descriptor}))

	case Dynamic:
		if err := w.WriteU16(v.BootstrapMethodAttrIndex); err != nil {
			return err
		}
		return w.WriteU16(pool.Add(v.NameAndType))

	case InvokeDynamic:
		if err := w.WriteU16(v.BootstrapMethodAttrIndex); err != nil {
			return err
		}
		return w.WriteU16(pool.Add(v.NameAndType))

	case Module:
		return w.WriteU16(pool.Add(Utf8{Value: v.Name}))

	case Package:
		return w.WriteU16(pool.Add(Utf8{Value: v.Name}))

	case UnresolvedIndex:
		return errors.Newf("constant: cannot write an unresolved index placeholder (index %d)", v.N)
	}
	return errors.Newf("constant: cannot encode unrecognized constant %T", c)
}

func encodeRef(w *binio.Writer, pool PoolAdder, class Class, nat NameAndType) error {
	classIndex := pool.Add(class)
	natIndex := pool.Add(nat)
	if err := w.WriteU16(classIndex); err != nil {
		return err
	}
	return w.WriteU16(natIndex)
}

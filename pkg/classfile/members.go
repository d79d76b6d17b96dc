package classfile

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/constant"
)

func readAttributes(r *binio.Reader, pool *ConstantPool) ([]AttributeInfo, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading attributes_count")
	}
	attrs := make([]AttributeInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d name index", i)
		}
		name, err := pool.GetUtf8(nameIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving attribute %d name", i)
		}
		length, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d length", i)
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d body", i)
		}
		attrs = append(attrs, AttributeInfo{Name: name, Data: data})
	}
	return attrs, nil
}

func readFields(r *binio.Reader, owner *ClassFile, pool *ConstantPool, opts Options) ([]*Field, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading fields_count")
	}
	fields := make([]*Field, 0, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d access_flags", i)
		}
		nameIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d name_index", i)
		}
		name, err := pool.GetUtf8(nameIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d name", i)
		}
		descIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d descriptor_index", i)
		}
		descriptor, err := pool.GetUtf8(descIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d descriptor", i)
		}
		attrs, err := readAttributes(r, pool)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d attributes", i)
		}

		f := &Field{
			Owner:       owner,
			AccessFlags: accessFlags,
			Name:        name,
			Descriptor:  descriptor,
			Attributes:  attrs,
		}
		if opts.ParseFieldDescriptor != nil {
			t, err := opts.ParseFieldDescriptor(descriptor)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing field %s descriptor %q", name, descriptor)
			}
			f.Type = t
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func readMethods(r *binio.Reader, owner *ClassFile, pool *ConstantPool, opts Options) ([]*Method, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading methods_count")
	}
	methods := make([]*Method, 0, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d access_flags", i)
		}
		nameIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d name_index", i)
		}
		name, err := pool.GetUtf8(nameIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d name", i)
		}
		descIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d descriptor_index", i)
		}
		descriptor, err := pool.GetUtf8(descIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d descriptor", i)
		}
		attrs, err := readAttributes(r, pool)
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d attributes", i)
		}

		m := &Method{
			Owner:       owner,
			AccessFlags: accessFlags,
			Name:        name,
			Descriptor:  descriptor,
		}
		for _, attr := range attrs {
			if attr.Name == "Code" {
				code, err := decodeCodeAttribute(attr.Data, pool)
				if err != nil {
					return nil, errors.Wrapf(err, "decoding method %d Code attribute", i)
				}
				m.Code = code
				continue
			}
			m.Attributes = append(m.Attributes, attr)
		}
		if opts.ParseMethodDescriptor != nil {
			argTypes, retType, err := opts.ParseMethodDescriptor(descriptor)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing method %s descriptor %q", name, descriptor)
			}
			m.ArgTypes = argTypes
			m.RetType = retType
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// decodeCodeAttribute decodes a Code attribute's already-extracted body (the
// u4 attribute_length has already been consumed by readAttributes; this
// parses the structure inside it).
func decodeCodeAttribute(data []byte, pool *ConstantPool) (*CodeAttribute, error) {
	r := binio.NewReader(bytes.NewReader(data))

	maxStack, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading max_stack")
	}
	maxLocals, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading max_locals")
	}
	codeLength, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading code_length")
	}
	code, err := r.ReadBytes(int(codeLength))
	if err != nil {
		return nil, errors.Wrap(err, "reading code")
	}

	handlerCount, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading exception_table_length")
	}
	handlers := make([]ExceptionHandler, handlerCount)
	for i := range handlers {
		startPC, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading exception handler %d start_pc", i)
		}
		endPC, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading exception handler %d end_pc", i)
		}
		handlerPC, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading exception handler %d handler_pc", i)
		}
		catchTypeIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading exception handler %d catch_type", i)
		}
		h := ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC}
		if catchTypeIdx != 0 {
			cls, err := resolveClass(pool, catchTypeIdx)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving exception handler %d catch_type", i)
			}
			h.CatchType = &cls
		}
		handlers[i] = h
	}

	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, errors.Wrap(err, "reading Code sub-attributes")
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
		Attributes:        attrs,
	}, nil
}

func decodeBootstrapMethods(data []byte, pool *ConstantPool) ([]BootstrapMethod, error) {
	r := binio.NewReader(bytes.NewReader(data))
	count, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading num_bootstrap_methods")
	}
	methods := make([]BootstrapMethod, count)
	for i := range methods {
		methodRefIdx, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading bootstrap method %d bootstrap_method_ref", i)
		}
		c, err := pool.GetRaise(methodRefIdx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving bootstrap method %d bootstrap_method_ref", i)
		}
		handle, ok := c.(constant.MethodHandle)
		if !ok {
			return nil, constant.NewKindMismatchError("MethodHandle", constant.Name(c.Tag()), methodRefIdx)
		}

		argCount, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading bootstrap method %d num_bootstrap_arguments", i)
		}
		args := make([]constant.Constant, argCount)
		for j := range args {
			argIdx, err := r.ReadU16()
			if err != nil {
				return nil, errors.Wrapf(err, "reading bootstrap method %d argument %d", i, j)
			}
			arg, err := pool.GetRaise(argIdx)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving bootstrap method %d argument %d", i, j)
			}
			args[j] = arg
		}

		methods[i] = BootstrapMethod{Method: handle, Arguments: args}
	}
	return methods, nil
}

// writeMethods writes the methods_count-prefixed methods table.
func (cf *ClassFile) writeMethods(w *binio.Writer) error {
	if err := w.WriteU16(uint16(len(cf.Methods))); err != nil {
		return err
	}
	for _, m := range cf.Methods {
		if err := w.WriteU16(m.AccessFlags); err != nil {
			return err
		}
		if err := w.WriteU16(cf.Pool.AddUtf8(m.Name)); err != nil {
			return err
		}
		if err := w.WriteU16(cf.Pool.AddUtf8(m.Descriptor)); err != nil {
			return err
		}

		attrs := m.Attributes
		if m.Code != nil {
			codeBytes, err := encodeCodeAttribute(cf.Pool, m.Code)
			if err != nil {
				return errors.Wrapf(err, "encoding method %s Code attribute", m.Name)
			}
			attrs = append(append([]AttributeInfo{}, attrs...), AttributeInfo{Name: "Code", Data: codeBytes})
		}
		if err := writeAttributeList(w, cf.Pool, attrs); err != nil {
			return err
		}
	}
	return nil
}

// writeClassAttributes writes the class-level attributes_count-prefixed
// table, synthesizing a BootstrapMethods entry when cf.BootstrapMethods is
// non-empty.
func (cf *ClassFile) writeClassAttributes(w *binio.Writer) error {
	attrs := cf.Attributes
	if len(cf.BootstrapMethods) > 0 {
		data, err := encodeBootstrapMethods(cf.Pool, cf.BootstrapMethods)
		if err != nil {
			return errors.Wrap(err, "encoding BootstrapMethods attribute")
		}
		attrs = append(append([]AttributeInfo{}, attrs...), AttributeInfo{Name: "BootstrapMethods", Data: data})
	}
	return writeAttributeList(w, cf.Pool, attrs)
}

func encodeCodeAttribute(pool *ConstantPool, code *CodeAttribute) ([]byte, error) {
	var body bytes.Buffer
	w := binio.NewWriter(&body)

	if err := w.WriteU16(code.MaxStack); err != nil {
		return nil, err
	}
	if err := w.WriteU16(code.MaxLocals); err != nil {
		return nil, err
	}
	if err := w.WriteU32(uint32(len(code.Code))); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(code.Code); err != nil {
		return nil, err
	}

	if err := w.WriteU16(uint16(len(code.ExceptionHandlers))); err != nil {
		return nil, err
	}
	for _, h := range code.ExceptionHandlers {
		if err := w.WriteU16(h.StartPC); err != nil {
			return nil, err
		}
		if err := w.WriteU16(h.EndPC); err != nil {
			return nil, err
		}
		if err := w.WriteU16(h.HandlerPC); err != nil {
			return nil, err
		}
		var catchIdx uint16
		if h.CatchType != nil {
			catchIdx = pool.Add(*h.CatchType)
		}
		if err := w.WriteU16(catchIdx); err != nil {
			return nil, err
		}
	}

	if err := writeAttributeList(w, pool, code.Attributes); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}

func encodeBootstrapMethods(pool *ConstantPool, methods []BootstrapMethod) ([]byte, error) {
	var body bytes.Buffer
	w := binio.NewWriter(&body)

	if err := w.WriteU16(uint16(len(methods))); err != nil {
		return nil, err
	}
	for _, bm := range methods {
		if err := w.WriteU16(pool.Add(bm.Method)); err != nil {
			return nil, err
		}
		if err := w.WriteU16(uint16(len(bm.Arguments))); err != nil {
			return nil, err
		}
		for _, arg := range bm.Arguments {
			if err := w.WriteU16(pool.Add(arg)); err != nil {
				return nil, err
			}
		}
	}
	return body.Bytes(), nil
}

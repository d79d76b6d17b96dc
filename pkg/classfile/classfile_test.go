package classfile

import (
	"bytes"
	"context"
	"testing"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/constant"
)

func minimalClassFile() *ClassFile {
	cf := &ClassFile{
		MinorVersion: 0,
		MajorVersion: 52,
		Pool:         NewConstantPool(),
		AccessFlags:  AccPublic | AccSuper,
		ThisClass:    constant.Class{Name: "com/example/Greeter"},
		SuperClass:   &constant.Class{Name: "java/lang/Object"},
	}
	cf.Fields = []*Field{
		{Owner: cf, AccessFlags: AccPublic, Name: "count", Descriptor: "I"},
	}
	cf.Methods = []*Method{
		{
			Owner:       cf,
			AccessFlags: AccPublic,
			Name:        "<init>",
			Descriptor:  "()V",
			Code: &CodeAttribute{
				MaxStack:  1,
				MaxLocals: 1,
				Code:      []byte{0x2a, 0xb1}, // aload_0, return
			},
		},
	}
	return cf
}

func TestClassFileWriteReadRoundTrip(t *testing.T) {
	cf := minimalClassFile()

	var buf bytes.Buffer
	if err := Write(context.Background(), cf, binio.NewWriter(&buf)); err != nil {
		t.Fatal(err)
	}

	got, err := Read(context.Background(), binio.NewReader(&buf), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if got.ClassName() != "com/example/Greeter" {
		t.Errorf("ClassName() = %q", got.ClassName())
	}
	if got.MajorVersion != 52 || got.MinorVersion != 0 {
		t.Errorf("version = %d.%d", got.MajorVersion, got.MinorVersion)
	}
	if got.SuperClass == nil || got.SuperClass.Name != "java/lang/Object" {
		t.Errorf("SuperClass = %v", got.SuperClass)
	}
	if len(got.Fields) != 1 || got.Fields[0].Name != "count" || got.Fields[0].Descriptor != "I" {
		t.Fatalf("fields = %+v", got.Fields)
	}
	if got.Fields[0].Owner != got {
		t.Error("field's Owner should back-reference the decoded class")
	}

	m := got.FindMethod("<init>", "()V")
	if m == nil {
		t.Fatal("expected to find <init>()V")
	}
	if m.Code == nil {
		t.Fatal("expected a decoded Code attribute")
	}
	if !bytes.Equal(m.Code.Code, []byte{0x2a, 0xb1}) {
		t.Errorf("code bytes = %v", m.Code.Code)
	}
}

func TestClassFileFindMethodMiss(t *testing.T) {
	cf := minimalClassFile()
	if cf.FindMethod("missing", "()V") != nil {
		t.Error("expected nil for a method that does not exist")
	}
}

func TestClassFileBootstrapMethodsRoundTrip(t *testing.T) {
	cf := minimalClassFile()
	cf.BootstrapMethods = []BootstrapMethod{
		{
			Method: constant.MethodHandle{
				RefKind: constant.RefInvokeStatic,
				Referent: constant.MethodRef{
					Class:       constant.Class{Name: "java/lang/invoke/LambdaMetafactory"},
					NameAndType: constant.NameAndType{Name: "metafactory", Descriptor: "()V"},
				},
			},
			Arguments: []constant.Constant{constant.String{Value: "arg"}},
		},
	}

	var buf bytes.Buffer
	if err := Write(context.Background(), cf, binio.NewWriter(&buf)); err != nil {
		t.Fatal(err)
	}
	got, err := Read(context.Background(), binio.NewReader(&buf), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.BootstrapMethods) != 1 {
		t.Fatalf("expected one bootstrap method, got %d", len(got.BootstrapMethods))
	}
	bm := got.BootstrapMethods[0]
	if bm.Method.RefKind != constant.RefInvokeStatic {
		t.Errorf("RefKind = %d", bm.Method.RefKind)
	}
	if len(bm.Arguments) != 1 || bm.Arguments[0] != (constant.String{Value: "arg"}) {
		t.Errorf("Arguments = %+v", bm.Arguments)
	}
}

func TestClassFileInvalidMagic(t *testing.T) {
	r := binio.NewReader(bytes.NewReader([]byte{0, 0, 0, 0}))
	_, err := Read(context.Background(), r, Options{})
	if err == nil {
		t.Error("expected an error for an invalid magic number")
	}
}

func TestClassFileExceptionHandlerCatchAll(t *testing.T) {
	cf := minimalClassFile()
	cf.Methods[0].Code.ExceptionHandlers = []ExceptionHandler{
		{StartPC: 0, EndPC: 1, HandlerPC: 1, CatchType: nil},
	}

	var buf bytes.Buffer
	if err := Write(context.Background(), cf, binio.NewWriter(&buf)); err != nil {
		t.Fatal(err)
	}
	got, err := Read(context.Background(), binio.NewReader(&buf), Options{})
	if err != nil {
		t.Fatal(err)
	}
	m := got.FindMethod("<init>", "()V")
	if len(m.Code.ExceptionHandlers) != 1 {
		t.Fatalf("expected one exception handler, got %d", len(m.Code.ExceptionHandlers))
	}
	if m.Code.ExceptionHandlers[0].CatchType != nil {
		t.Error("expected a nil CatchType for a catch-all handler")
	}
}

package constant

import (
	"bytes"
	"testing"

	"github.com/ogclass/classpool/pkg/binio"
)

// fakePool is a minimal PoolAdder for exercising Encode in isolation from
// classfile.ConstantPool: it just hands out ascending indices, deduplicating
// by value like the real pool does.
type fakePool struct {
	byValue map[Constant]uint16
	next    uint16
}

func newFakePool() *fakePool {
	return &fakePool{byValue: make(map[Constant]uint16), next: 1}
}

func (p *fakePool) Add(c Constant) uint16 {
	if idx, ok := p.byValue[c]; ok {
		return idx
	}
	idx := p.next
	p.next++
	p.byValue[c] = idx
	return idx
}

func TestEncodePrimitive(t *testing.T) {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := Encode(w, Integer{Value: -1}, newFakePool()); err != nil {
		t.Fatal(err)
	}

	r := binio.NewReader(&buf)
	tag, err := r.ReadU8()
	if err != nil || tag != TagInteger {
		t.Fatalf("tag: got (%v, %v)", tag, err)
	}
	v, err := r.ReadI32()
	if err != nil || v != -1 {
		t.Fatalf("value: got (%v, %v)", v, err)
	}
}

func TestEncodeClassMaterializesUtf8(t *testing.T) {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	pool := newFakePool()
	if err := Encode(w, Class{Name: "java/lang/Object"}, pool); err != nil {
		t.Fatal(err)
	}
	if len(pool.byValue) != 1 {
		t.Fatalf("expected one materialized Utf8, got %d", len(pool.byValue))
	}
	if _, ok := pool.byValue[Utf8{Value: "java/lang/Object"}]; !ok {
		t.Error("expected the class's name to be added as a Utf8")
	}
}

func TestEncodeDedupesReferents(t *testing.T) {
	pool := newFakePool()
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)

	nat := NameAndType{Name: "out", Descriptor: "Ljava/io/PrintStream;"}
	ref := FieldRef{Class: Class{Name: "java/lang/System"}, NameAndType: nat}
	if err := Encode(w, ref, pool); err != nil {
		t.Fatal(err)
	}
	before := len(pool.byValue)

	var buf2 bytes.Buffer
	w2 := binio.NewWriter(&buf2)
	if err := Encode(w2, ref, pool); err != nil {
		t.Fatal(err)
	}
	if len(pool.byValue) != before {
		t.Errorf("encoding the same referent twice should not add new pool entries, went from %d to %d", before, len(pool.byValue))
	}
}

func TestEncodeUnresolvedIndexFails(t *testing.T) {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := Encode(w, UnresolvedIndex{N: 3}, newFakePool()); err == nil {
		t.Error("expected an error encoding an unresolved index placeholder")
	}
}

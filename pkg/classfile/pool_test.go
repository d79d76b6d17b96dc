package classfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/constant"
)

func TestPoolAddDedup(t *testing.T) {
	pool := NewConstantPool()
	i1 := pool.AddUtf8("java/lang/Object")
	i2 := pool.AddUtf8("java/lang/Object")
	if i1 != i2 {
		t.Errorf("expected the same index for an equal Utf8, got %d and %d", i1, i2)
	}
	if pool.Len() != 1 {
		t.Errorf("expected one entry, got %d", pool.Len())
	}
}

func TestPoolAddWideAdvancesByTwo(t *testing.T) {
	pool := NewConstantPool()
	first := pool.Add(constant.Long{Value: 1})
	second := pool.Add(constant.Utf8{Value: "x"})
	if second != first+2 {
		t.Errorf("expected the next index to skip the reserved wide slot: got %d after %d", second, first)
	}
}

func TestPoolAddUnresolvedIndexPassthrough(t *testing.T) {
	pool := NewConstantPool()
	idx := pool.Add(constant.UnresolvedIndex{N: 99})
	if idx != 99 {
		t.Errorf("expected UnresolvedIndex to pass its N through unchanged, got %d", idx)
	}
	if pool.Len() != 0 {
		t.Errorf("expected Add(UnresolvedIndex) to mutate nothing, got Len()=%d", pool.Len())
	}
}

func TestPoolGetUnresolved(t *testing.T) {
	pool := NewConstantPool()
	c := pool.Get(5)
	if _, ok := c.(constant.UnresolvedIndex); !ok {
		t.Errorf("expected UnresolvedIndex for an empty slot, got %v", c)
	}
}

func TestPoolGetUtf8KindMismatch(t *testing.T) {
	pool := NewConstantPool()
	idx := pool.Add(constant.Integer{Value: 1})
	_, err := pool.GetUtf8(idx)
	if !errors.Is(err, constant.ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
}

func TestPoolSetRejectsOccupiedSlot(t *testing.T) {
	pool := NewConstantPool()
	idx := pool.AddUtf8("x")
	err := pool.Set(idx, constant.Utf8{Value: "y"})
	if !errors.Is(err, constant.ErrSlotOccupied) {
		t.Errorf("expected ErrSlotOccupied, got %v", err)
	}
}

func TestPoolIndicesSorted(t *testing.T) {
	pool := NewConstantPool()
	pool.AddUtf8("c")
	pool.AddUtf8("a")
	pool.AddUtf8("b")
	indices := pool.Indices()
	for i := 1; i < len(indices); i++ {
		if indices[i-1] >= indices[i] {
			t.Fatalf("Indices() not sorted ascending: %v", indices)
		}
	}
}

// buildPoolBytes prefixes a hand-assembled constant_pool body (the tagged
// entries) with the given constant_pool_count, so ReadPool can be exercised
// without going through a full Write round trip.
func buildPoolBytes(t *testing.T, count uint16, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	if err := w.WriteU16(count); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBytes(body); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadPoolForwardReference(t *testing.T) {
	// #1 = Class -> name #2 (declared before its Utf8 target exists)
	// #2 = Utf8 "Foo"
	var body bytes.Buffer
	bw := binio.NewWriter(&body)
	bw.WriteU8(constant.TagClass)
	bw.WriteU16(2)
	bw.WriteU8(constant.TagUtf8)
	bw.WriteUtf8Bytes(binio.EncodeMUTF8("Foo"))

	data := buildPoolBytes(t, 3, body.Bytes())
	pool, err := ReadPool(binio.NewReader(bytes.NewReader(data)), 52)
	if err != nil {
		t.Fatal(err)
	}
	c := pool.Get(1)
	cls, ok := c.(constant.Class)
	if !ok || cls.Name != "Foo" {
		t.Errorf("got %v", c)
	}
}

func TestReadPoolWideEntry(t *testing.T) {
	// #1 = Long, #2 reserved, #3 = Utf8 "after"
	var body bytes.Buffer
	bw := binio.NewWriter(&body)
	bw.WriteU8(constant.TagLong)
	bw.WriteI64(123456789)
	bw.WriteU8(constant.TagUtf8)
	bw.WriteUtf8Bytes(binio.EncodeMUTF8("after"))

	data := buildPoolBytes(t, 4, body.Bytes())
	pool, err := ReadPool(binio.NewReader(bytes.NewReader(data)), 52)
	if err != nil {
		t.Fatal(err)
	}
	if l, ok := pool.Get(1).(constant.Long); !ok || l.Value != 123456789 {
		t.Errorf("got %v", pool.Get(1))
	}
	if _, ok := pool.Get(2).(constant.UnresolvedIndex); !ok {
		t.Errorf("expected index 2 (the wide entry's reserved slot) to be unoccupied, got %v", pool.Get(2))
	}
	if u, ok := pool.Get(3).(constant.Utf8); !ok || u.Value != "after" {
		t.Errorf("got %v", pool.Get(3))
	}
}

func TestReadPoolUnresolvableReferences(t *testing.T) {
	// A Class referencing an index that is never populated at all.
	var body bytes.Buffer
	bw := binio.NewWriter(&body)
	bw.WriteU8(constant.TagClass)
	bw.WriteU16(99)

	data := buildPoolBytes(t, 2, body.Bytes())
	_, err := ReadPool(binio.NewReader(bytes.NewReader(data)), 52)
	if !errors.Is(err, constant.ErrUnresolvableRefs) {
		t.Errorf("expected ErrUnresolvableRefs, got %v", err)
	}
}

func TestPoolWriteReadRoundTrip(t *testing.T) {
	pool := NewConstantPool()
	pool.AddClass("java/lang/Object")
	pool.AddString("hello")
	pool.Add(constant.Long{Value: -9999})

	var buf bytes.Buffer
	if err := pool.Write(binio.NewWriter(&buf)); err != nil {
		t.Fatal(err)
	}

	readBack, err := ReadPool(binio.NewReader(&buf), 52)
	if err != nil {
		t.Fatal(err)
	}
	if readBack.Len() != pool.Len() {
		t.Errorf("round trip changed entry count: got %d, want %d", readBack.Len(), pool.Len())
	}
	for _, idx := range pool.Indices() {
		if readBack.Get(idx) != pool.Get(idx) {
			t.Errorf("index %d: got %v, want %v", idx, readBack.Get(idx), pool.Get(idx))
		}
	}
}

func TestPoolWriteMaterializesEncodingReferents(t *testing.T) {
	pool := NewConstantPool()
	// A FieldRef added directly, without its Class/NameAndType parts ever
	// having gone through Add first: Write's Encode call must materialize
	// them, and the loop bound must pick up the newly appended entries.
	ref := constant.FieldRef{
		Class:       constant.Class{Name: "java/lang/System"},
		NameAndType: constant.NameAndType{Name: "out", Descriptor: "Ljava/io/PrintStream;"},
	}
	pool.Add(ref)

	var buf bytes.Buffer
	if err := pool.Write(binio.NewWriter(&buf)); err != nil {
		t.Fatal(err)
	}
	if !pool.Contains(constant.Class{Name: "java/lang/System"}) {
		t.Error("expected Write to have materialized the FieldRef's Class")
	}
	if !pool.Contains(constant.Utf8{Value: "out"}) {
		t.Error("expected Write to have materialized the NameAndType's name Utf8")
	}
}

// FuzzPoolRoundTrip feeds arbitrary bytes (prefixed with a constant_pool_count)
// through ReadPool: a malformed pool must fail with an error, never panic, and
// a pool that does parse must survive a Write/ReadPool round trip unchanged.
func FuzzPoolRoundTrip(f *testing.F) {
	seed := NewConstantPool()
	seed.AddClass("java/lang/Object")
	seed.AddString("hello")
	seed.Add(constant.Long{Value: 42})
	var seedBuf bytes.Buffer
	if err := seed.Write(binio.NewWriter(&seedBuf)); err != nil {
		f.Fatal(err)
	}
	f.Add(seedBuf.Bytes())
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0x00, 0x02, byte(constant.TagClass), 0x00, 0x05})

	f.Fuzz(func(t *testing.T, data []byte) {
		pool, err := ReadPool(binio.NewReader(bytes.NewReader(data)), 55)
		if err != nil {
			return
		}

		var buf bytes.Buffer
		if err := pool.Write(binio.NewWriter(&buf)); err != nil {
			t.Fatalf("re-encoding a successfully parsed pool must not fail: %v", err)
		}
		readBack, err := ReadPool(binio.NewReader(&buf), 55)
		if err != nil {
			t.Fatalf("re-decoding a just-written pool must not fail: %v", err)
		}
		for _, idx := range pool.Indices() {
			if readBack.Get(idx) != pool.Get(idx) {
				t.Errorf("round trip changed index %d: got %v, want %v", idx, readBack.Get(idx), pool.Get(idx))
			}
		}
	})
}

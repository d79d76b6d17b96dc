// Package classfile implements the constant pool container and the
// class-file skeleton that owns it: the indexed, bidirectional table at the
// head of every .class file, and the version/access-flags/this-super/
// interfaces/fields/methods/attributes structure that references into it.
package classfile

import (
	"bytes"
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/ogclass/classpool/pkg/binio"
	"github.com/ogclass/classpool/pkg/constant"
)

// ConstantPool is an indexed, bidirectional container of constants. forward
// maps a pool index to its constant; backward maps a constant value back to
// its index, which is what makes Add's deduplication possible. Index 0 is
// reserved and never populated; wide constants (Long, Double) occupy two
// consecutive indices and only the first is ever present in either map.
type ConstantPool struct {
	forward   map[uint16]constant.Constant
	backward  map[constant.Constant]uint16
	nextIndex uint16
}

// NewConstantPool returns an empty pool ready for Add calls.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		forward:   make(map[uint16]constant.Constant),
		backward:  make(map[constant.Constant]uint16),
		nextIndex: 1,
	}
}

type pendingEntry struct {
	offset   uint16
	deferred *constant.Deferred
}

// ReadPool decodes a constant_pool_count-prefixed table from r. version is
// the class file's major version, used to gate constants introduced in later
// class file versions (see constant.Decode).
//
// Decoding proceeds in two phases, per the source algorithm this is grounded
// on: primitive-valued constants resolve immediately; reference-bearing
// constants are queued as Deferred descriptors and repeatedly re-tried
// against the forward map until the queue empties. A pass that resolves
// nothing terminates the loop with UnresolvableReferencesError rather than
// looping forever — the constant grammar's reference chains are acyclic
// (refs -> Class/NameAndType -> Utf8; MethodHandle -> Ref -> ...; Dynamic ->
// NameAndType -> Utf8) so a well-formed pool always drains; only a
// malformed or cyclic one trips this guard.
func ReadPool(r *binio.Reader, version uint16) (*ConstantPool, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading constant_pool_count")
	}

	pool := NewConstantPool()
	var queue []pendingEntry

	for offset := uint16(1); offset < count; offset++ {
		tag, err := r.ReadU8()
		if err != nil {
			return nil, errors.Wrapf(err, "reading tag at index %d", offset)
		}
		resolved, deferred, err := constant.Decode(r, tag, version)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding entry at index %d", offset)
		}
		if resolved != nil {
			pool.install(offset, resolved)
		} else {
			queue = append(queue, pendingEntry{offset: offset, deferred: deferred})
		}
		if constant.IsWide(tag) {
			offset++
		}
	}

	for len(queue) > 0 {
		var remaining []pendingEntry
		progressed := false
		for _, entry := range queue {
			resolved, pending, err := constant.Dereference(entry.deferred, pool.forward)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving index %d", entry.offset)
			}
			if pending {
				remaining = append(remaining, entry)
				continue
			}
			pool.install(entry.offset, resolved)
			progressed = true
		}
		if !progressed {
			return nil, constant.NewUnresolvableReferencesError(len(remaining))
		}
		slog.Debug("constant pool fix-up pass", "resolved", len(queue)-len(remaining), "pending", len(remaining))
		queue = remaining
	}

	pool.nextIndex = count
	return pool, nil
}

// install places a freshly resolved constant at offset, first-occurrence-wins
// on the backward map: a decoded file may legally contain duplicate constant
// values at distinct indices (the format does not require dedup on read),
// and a later Add should reuse the earliest occurrence rather than create a
// second, equally valid one.
func (p *ConstantPool) install(offset uint16, c constant.Constant) {
	p.forward[offset] = c
	if _, exists := p.backward[c]; !exists {
		p.backward[c] = offset
	}
}

// Write serializes the pool: tag+payload for every occupied slot from index 1
// up to (and growing with) nextIndex, preceded by a count field patched in
// after the fact. Encoding a constant may itself call p.Add for a referent
// that was never explicitly added (e.g. a FieldRef constructed directly
// without first adding its Class/NameAndType parts) — the loop bound reads
// p.nextIndex on every iteration so entries appended mid-walk are still
// visited, and the count is written only once the walk (and all the
// appending it triggered) is done.
func (p *ConstantPool) Write(w *binio.Writer) error {
	var body bytes.Buffer
	bw := binio.NewWriter(&body)

	for offset := uint16(1); offset < p.nextIndex; offset++ {
		c, ok := p.forward[offset]
		if !ok {
			continue // unoccupied: the reserved second slot of a wide entry
		}
		if err := constant.Encode(bw, c, p); err != nil {
			return errors.Wrapf(err, "encoding index %d", offset)
		}
		if constant.IsWide(c.Tag()) {
			offset++
		}
	}

	if err := w.WriteU16(p.nextIndex); err != nil {
		return errors.Wrap(err, "writing constant_pool_count")
	}
	return w.WriteBytes(body.Bytes())
}

// Add returns the existing index for c if an equal constant is already
// present (structural equality on the resolved form); otherwise it assigns
// the next index (advancing by two for a wide constant) and records both
// directions. Adding an UnresolvedIndex returns its N unchanged and mutates
// nothing — the discipline write paths use when they already know the index
// of a constant they do not own.
func (p *ConstantPool) Add(c constant.Constant) uint16 {
	if idx, ok := c.(constant.UnresolvedIndex); ok {
		return idx.N
	}
	if idx, ok := p.backward[c]; ok {
		return idx
	}
	idx := p.nextIndex
	p.forward[idx] = c
	p.backward[c] = idx
	if constant.IsWide(c.Tag()) {
		p.nextIndex += 2
	} else {
		p.nextIndex++
	}
	return idx
}

// AddUtf8 adds (or reuses) a Utf8 constant for s.
func (p *ConstantPool) AddUtf8(s string) uint16 {
	return p.Add(constant.Utf8{Value: s})
}

// AddClass adds (or reuses) a Class constant for the given internal name.
func (p *ConstantPool) AddClass(internalName string) uint16 {
	return p.Add(constant.Class{Name: internalName})
}

// AddString adds (or reuses) a String constant for value.
func (p *ConstantPool) AddString(value string) uint16 {
	return p.Add(constant.String{Value: value})
}

// Get returns the constant at index, or an UnresolvedIndex sentinel if the
// slot is empty.
func (p *ConstantPool) Get(index uint16) constant.Constant {
	if c, ok := p.forward[index]; ok {
		return c
	}
	return constant.UnresolvedIndex{N: index}
}

// GetRaise returns the constant at index, or an error if the slot is empty.
func (p *ConstantPool) GetRaise(index uint16) (constant.Constant, error) {
	c, ok := p.forward[index]
	if !ok {
		return nil, errors.Newf("classfile: no constant at index %d", index)
	}
	return c, nil
}

// GetUtf8 returns the string payload at index, failing with a KindMismatch
// error if the slot holds a non-Utf8 constant; an empty slot fails with
// GetRaise's error.
func (p *ConstantPool) GetUtf8(index uint16) (string, error) {
	c, err := p.GetRaise(index)
	if err != nil {
		return "", err
	}
	u, ok := c.(constant.Utf8)
	if !ok {
		return "", constant.NewKindMismatchError("Utf8", constant.Name(c.Tag()), index)
	}
	return u.Value, nil
}

// Contains reports whether v — an index (uint16) or a constant.Constant
// value — is present in the pool.
func (p *ConstantPool) Contains(v any) bool {
	switch x := v.(type) {
	case uint16:
		_, ok := p.forward[x]
		return ok
	case constant.Constant:
		_, ok := p.backward[x]
		return ok
	default:
		return false
	}
}

// Len returns the number of occupied entries (the reserved second slot of a
// wide constant is not counted).
func (p *ConstantPool) Len() int {
	return len(p.forward)
}

// Clear empties the pool and resets the index cursor.
func (p *ConstantPool) Clear() {
	p.forward = make(map[uint16]constant.Constant)
	p.backward = make(map[constant.Constant]uint16)
	p.nextIndex = 1
}

// Set materializes a previously unresolved index: it fails with
// SlotOccupiedError if index already holds a constant. It never rebinds an
// occupied slot.
func (p *ConstantPool) Set(index uint16, c constant.Constant) error {
	if _, ok := p.forward[index]; ok {
		return constant.NewSlotOccupiedError(index)
	}
	p.forward[index] = c
	if _, exists := p.backward[c]; !exists {
		p.backward[c] = index
	}
	return nil
}

// Indices returns every occupied index in ascending order, a convenience for
// callers that want to walk the pool deterministically (e.g. a dump tool).
func (p *ConstantPool) Indices() []uint16 {
	indices := make([]uint16, 0, len(p.forward))
	for idx := range p.forward {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

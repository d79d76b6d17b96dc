package constant

import "github.com/samber/lo"

// Constant pool tags, per the JVM specification. Tags 2, 13, 14 are reserved
// and never appear in a valid file.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// MethodHandle reference kinds (JVMS 4.4.8), preserved for callers that want
// to label a handle; the core does not enforce kind<->referent agreement
// (see lookupHandleReferent).
const (
	RefGetField         uint8 = 1
	RefGetStatic        uint8 = 2
	RefPutField         uint8 = 3
	RefPutStatic        uint8 = 4
	RefInvokeVirtual    uint8 = 5
	RefInvokeStatic     uint8 = 6
	RefInvokeSpecial    uint8 = 7
	RefNewInvokeSpecial uint8 = 8
	RefInvokeInterface  uint8 = 9
)

// taxonomyEntry describes one constant variant's static properties: whether
// it occupies two pool slots and the minimum class-file major version it is
// legal in.
type taxonomyEntry struct {
	name  string
	wide  bool
	since uint16
}

// taxonomy is the closed, compile-time-known table from tag byte to variant
// metadata. The JVM spec enumerates this set exhaustively; there is no
// open-extension mechanism to design for.
var taxonomy = map[uint8]taxonomyEntry{
	TagUtf8:               {"Utf8", false, 45},
	TagInteger:            {"Integer", false, 45},
	TagFloat:              {"Float", false, 45},
	TagLong:               {"Long", true, 45},
	TagDouble:             {"Double", true, 45},
	TagClass:              {"Class", false, 45},
	TagString:             {"String", false, 45},
	TagFieldref:           {"Fieldref", false, 45},
	TagMethodref:          {"Methodref", false, 45},
	TagInterfaceMethodref: {"InterfaceMethodref", false, 45},
	TagNameAndType:        {"NameAndType", false, 45},
	TagMethodHandle:       {"MethodHandle", false, 51},
	TagMethodType:         {"MethodType", false, 51},
	TagDynamic:            {"Dynamic", false, 55},
	TagInvokeDynamic:      {"InvokeDynamic", false, 51},
	TagModule:             {"Module", false, 53},
	TagPackage:            {"Package", false, 53},
}

// IsWide reports whether tag occupies two consecutive pool slots.
func IsWide(tag uint8) bool {
	return taxonomy[tag].wide
}

// Name returns the human-readable variant name for tag, or "" if unknown.
func Name(tag uint8) string {
	return taxonomy[tag].name
}

// SinceVersion returns the minimum major class-file version tag is legal in.
func SinceVersion(tag uint8) uint16 {
	return taxonomy[tag].since
}

// KnownTag reports whether tag is a recognized variant.
func KnownTag(tag uint8) bool {
	_, ok := taxonomy[tag]
	return ok
}

// AllTags returns every recognized tag, in no particular order — a
// convenience for tooling that wants to enumerate the taxonomy (e.g. a dump
// command's --help text or a fuzz corpus seed).
func AllTags() []uint8 {
	return lo.Keys(taxonomy)
}

// WideTags returns the subset of AllTags that occupy two pool slots.
func WideTags() []uint8 {
	return lo.Filter(AllTags(), func(tag uint8, _ int) bool { return taxonomy[tag].wide })
}

package binio

import "testing"

func TestMUTF8RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"java/lang/Object",
		"a b",
		"café", // a BMP code point outside ASCII
	}
	for _, s := range cases {
		encoded := EncodeMUTF8(s)
		got := DecodeMUTF8(encoded)
		if got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestEncodeMUTF8NUL(t *testing.T) {
	got := EncodeMUTF8("a b")
	want := []byte{'a', 0xC0, 0x80, 'b'}
	if string(got) != string(want) {
		t.Errorf("encode NUL: got %v, want %v", got, want)
	}
}

func TestDecodeMUTF8NUL(t *testing.T) {
	got := DecodeMUTF8([]byte{0xC0, 0x80})
	if got != " " {
		t.Errorf("decode C0 80: got %q, want U+0000", got)
	}
}

func TestMUTF8SupplementaryRoundTrip(t *testing.T) {
	s := "\U0001F600" // outside the BMP, requires a surrogate pair in MUTF-8
	encoded := EncodeMUTF8(s)
	got := DecodeMUTF8(encoded)
	if got != s {
		t.Errorf("supplementary round trip: got %q, want %q", got, s)
	}
	// A surrogate pair encodes as two 3-byte runs: 6 bytes total.
	if len(encoded) != 6 {
		t.Errorf("supplementary encoding length: got %d, want 6", len(encoded))
	}
}

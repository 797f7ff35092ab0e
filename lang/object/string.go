package object

// String is an interned, immutable-by-convention byte sequence. Construction
// always goes through gc.Collector.InternString so that two Strings with the
// same bytes are always the same object; its one constructor, NewString,
// is reserved for package gc.
type String struct {
	header
	Chars string
	Hash  uint32
}

var _ Obj = (*String)(nil)

// NewString is used exclusively by package gc to build an interned String.
// Call sites outside gc should never construct a String directly.
func NewString(chars string, hash uint32) *String {
	return &String{header: header{typ: ObjTypeString}, Chars: chars, Hash: hash}
}

func (s *String) String() string           { return s.Chars }
func (s *String) Blacken(mark func(Value)) {}

// HashFNV1a computes the 32-bit FNV-1a hash the intern table keys on.
func HashFNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

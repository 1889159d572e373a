package memory

import "strconv"

// Sequence hands out decimal identifiers starting at base. It is not safe
// for concurrent use; Store serialises access to it.
type Sequence struct {
	base int64
	next int64
}

func NewSequence(base int64) *Sequence {
	return &Sequence{base: base, next: base}
}

func (s *Sequence) Next() string {
	id := s.next
	s.next++
	return strconv.FormatInt(id, 10)
}

// Reset rewinds the counter to its base.
func (s *Sequence) Reset() {
	s.next = s.base
}

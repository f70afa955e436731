package engine

import "sync"

// Sequence is a Source that replays fixed die faces in order, wrapping
// around when exhausted. A face larger than the requested die wraps modulo
// the die size.
type Sequence struct {
	mu    sync.Mutex
	faces []int
	pos   int
}

// NewSequence returns a Sequence over faces. It panics on an empty list.
func NewSequence(faces ...int) *Sequence {
	if len(faces) == 0 {
		panic("engine: empty sequence")
	}
	return &Sequence{faces: append([]int(nil), faces...)}
}

// Intn implements Source.
func (s *Sequence) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.faces[s.pos%len(s.faces)]
	s.pos++
	v := (face - 1) % n
	if v < 0 {
		v += n
	}
	return v
}

// Fixed returns a Roller that replays faces.
func Fixed(faces ...int) *Roller {
	return NewRoller(NewSequence(faces...))
}

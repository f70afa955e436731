package stats

func (s *Store) dateKey() string { return s.now().UTC().Format("2006-01-02") }

// saveDailyMax keeps the larger of h and today's biggest hit in room. Ties
// keep the earlier hit. Callers hold s.mu.
func (s *Store) saveDailyMax(room string, h Hit) {
	key := s.dateKey()
	day := s.daily[key]
	if day == nil {
		day = make(map[string]Hit)
		s.daily[key] = day
	}
	if cur, ok := day[room]; ok && cur.Damage >= h.Damage {
		return
	}
	day[room] = h
}

// BiggestHitToday returns today's biggest hit in room.
func (s *Store) BiggestHitToday(room string) (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.daily[s.dateKey()][room]
	return h, ok
}

// ResetDaily clears every daily record.
func (s *Store) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.daily {
		delete(s.daily, k)
	}
}

package bulk

import "time"

// UndoEntry is a reversible operation waiting on a user's undo stack.
type UndoEntry struct {
	Operation Operation
	Reversal  *Reversal
	ExpiresAt time.Time

	inFlight bool
}

// HistoryEntry describes one undo stack entry to API callers.
type HistoryEntry struct {
	OperationID   string       `json:"operation_id"`
	OperationType Kind         `json:"operation_type"`
	Reversal      ReversalKind `json:"reversal"`
	ItemCount     int          `json:"item_count"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CanUndo       bool         `json:"can_undo"`
}

// undoStack is a bounded LIFO; pushing onto a full stack drops the oldest
// entry.
type undoStack struct {
	entries []*UndoEntry
	limit   int
}

// push adds e and evicts the oldest entries beyond the limit. Entries being
// undone are never evicted, so the stack may briefly exceed its limit.
func (s *undoStack) push(e *UndoEntry) {
	s.entries = append(s.entries, e)
	over := len(s.entries) - s.limit
	if over <= 0 {
		return
	}
	kept := make([]*UndoEntry, 0, len(s.entries))
	for _, old := range s.entries {
		if over > 0 && !old.inFlight {
			over--
			continue
		}
		kept = append(kept, old)
	}
	s.entries = kept
}

func (s *undoStack) prune(now time.Time) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.inFlight || now.Before(e.ExpiresAt) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
}

func (s *undoStack) latest() *UndoEntry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

func (s *undoStack) find(opID string) *UndoEntry {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Operation.ID == opID {
			return s.entries[i]
		}
	}
	return nil
}

func (s *undoStack) remove(opID string) {
	for i, e := range s.entries {
		if e.Operation.ID == opID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// history lists entries most recent first.
func (s *undoStack) history() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		out = append(out, HistoryEntry{
			OperationID:   e.Operation.ID,
			OperationType: e.Operation.Kind,
			Reversal:      e.Reversal.Kind,
			ItemCount:     e.Operation.SuccessfulItems(),
			CompletedAt:   e.Operation.CompletedAt,
			CanUndo:       !e.inFlight && !e.Reversal.Empty(),
		})
	}
	return out
}

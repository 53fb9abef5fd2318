package history

import "time"

// Entry is one submitted search.
type Entry struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

// Log is an append-only record of search submissions. It is not safe for concurrent use.
type Log struct {
	entries []Entry
}

func New() *Log {
	return &Log{}
}

// Record appends query unless it is empty and reports whether it was stored. The text is kept
// as submitted; repeats are recorded every time.
func (l *Log) Record(query string, at time.Time) bool {
	if query == "" {
		return false
	}
	l.entries = append(l.entries, Entry{Query: query, At: at})
	return true
}

// Entries returns the log oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	return len(l.entries)
}

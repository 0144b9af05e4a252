package snapshot

import (
	"procmem/process"
)

// Source is an open, point-in-time process snapshot. First and Next fill the entry and report
// false once the snapshot is exhausted.
type Source interface {
	First(e *Entry) bool
	Next(e *Entry) bool
	Close() error
}

// Opener takes a new snapshot.
type Opener func() (Source, error)

// Collect takes a snapshot with open and decodes every entry. When the snapshot cannot be
// taken the result is empty and the error is returned for logging only. The source is closed
// on every path, including a panic while decoding.
func Collect(open Opener, layout Layout) ([]process.ProcessInfo, error) {
	result := []process.ProcessInfo{}

	src, err := open()
	if err != nil {
		return result, err
	}
	defer src.Close()

	entry := NewEntry(layout)
	for ok := src.First(entry); ok; ok = src.Next(entry) {
		result = append(result, entry.Info())
		entry.Reset()
	}

	return result, nil
}

// Records is an in-memory Source over already captured process entries.
type Records struct {
	infos  []process.ProcessInfo
	next   int
	closed bool
}

// NewRecords returns a Source that yields infos in order.
func NewRecords(infos []process.ProcessInfo) *Records {
	return &Records{infos: infos}
}

func (r *Records) First(e *Entry) bool {
	r.next = 0
	return r.Next(e)
}

func (r *Records) Next(e *Entry) bool {
	if r.closed || r.next >= len(r.infos) {
		return false
	}
	e.SetInfo(r.infos[r.next])
	r.next++
	return true
}

func (r *Records) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Records) Closed() bool {
	return r.closed
}

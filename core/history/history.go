// Package history is a bounded store of previously entered command lines.
package history

import (
	"bufio"
	"strings"

	"github.com/spf13/afero"
)

// DefaultCapacity is used when a Store is created with a non-positive size.
const DefaultCapacity = 1000

// maxLineLength bounds a single line read back from a history file.
const maxLineLength = 1 << 20

// Store is a ring of the most recent lines. Index 0 is the oldest
// retained line.
type Store struct {
	ring  []string
	start int
	count int
	// seq is the number of lines ever added, used for stable numbering.
	seq int
}

// New creates a store that keeps at most capacity lines.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{ring: make([]string, capacity)}
}

// Capacity is the maximum number of retained lines.
func (s *Store) Capacity() int {
	return len(s.ring)
}

// Len is the number of retained lines.
func (s *Store) Len() int {
	return s.count
}

// Add appends line unless it is empty or repeats the newest entry.
// The oldest entry is evicted when the store is full.
func (s *Store) Add(line string) bool {
	if line == "" {
		return false
	}
	if last, ok := s.Last(); ok && last == line {
		return false
	}

	if s.count < len(s.ring) {
		s.ring[(s.start+s.count)%len(s.ring)] = line
		s.count++
	} else {
		s.ring[s.start] = line
		s.start = (s.start + 1) % len(s.ring)
	}
	s.seq++
	return true
}

// At returns the i-th retained line, oldest first.
func (s *Store) At(i int) string {
	if i < 0 || i >= s.count {
		return ""
	}
	return s.ring[(s.start+i)%len(s.ring)]
}

// Number is the 1-based sequence number of the i-th retained line. Numbers
// keep growing after old lines are evicted.
func (s *Store) Number(i int) int {
	return s.seq - s.count + i + 1
}

// Last returns the newest line.
func (s *Store) Last() (string, bool) {
	if s.count == 0 {
		return "", false
	}
	return s.At(s.count - 1), true
}

// Entries returns the retained lines, oldest first.
func (s *Store) Entries() []string {
	out := make([]string, s.count)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Clear drops every line.
func (s *Store) Clear() {
	for i := range s.ring {
		s.ring[i] = ""
	}
	s.start, s.count, s.seq = 0, 0, 0
}

// Clone returns an independent copy.
func (s *Store) Clone() *Store {
	out := &Store{
		ring:  append([]string(nil), s.ring...),
		start: s.start,
		count: s.count,
		seq:   s.seq,
	}
	return out
}

// Load appends the lines of the file at path. Only the newest Capacity
// lines survive.
func (s *Store) Load(fs afero.Fs, path string) error {
	fd, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		s.Add(strings.TrimRight(scanner.Text(), "\r"))
	}
	return scanner.Err()
}

// Save writes the retained lines to path, one per line, replacing the file.
func (s *Store) Save(fs afero.Fs, path string) error {
	var sb strings.Builder
	for _, line := range s.Entries() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return afero.WriteFile(fs, path, []byte(sb.String()), 0600)
}

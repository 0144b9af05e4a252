// Package search scans the readable memory of a process for a byte pattern.
package search

import (
	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"procmem/memory"
	"procmem/process"
	"procmem/process/memory_map"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "search"))

// Reader reads process memory; a short result means the rest of the range is not readable.
type Reader interface {
	Read(addr process.ProcessMemoryAddress, size int) ([]byte, error)
}

// Searcher holds configuration for the scan
type Searcher struct {
	ChunkSize    int
	MaxResults   int
	MinAlignment int
	WritableOnly bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

// WithChunkSize sets the size of each read. Sizes above memory.MaxReadSize are clamped.
func WithChunkSize(size int) Option {
	return func(s *Searcher) {
		s.ChunkSize = size
	}
}

// WithMaxResults stops the scan after n matches. Zero means no limit.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.MaxResults = n
	}
}

func WithMinAlignment(align int) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

func WithWritableOnly() Option {
	return func(s *Searcher) {
		s.WritableOnly = true
	}
}

// Scan returns the addresses in the readable regions where pattern matches, in ascending
// order. Chunks that cannot be read are skipped.
func Scan(r Reader, regions []memory_map.MemoryMapItem, pattern Pattern, options ...Option) ([]process.ProcessMemoryAddress, error) {
	s := &Searcher{
		ChunkSize:    1 << 20, // Default
		MaxResults:   1000,    // Default
		MinAlignment: 1,       // Default
	}

	for _, opt := range options {
		opt(s)
	}

	if pattern.Len() == 0 {
		return nil, ErrEmptyPattern
	}
	if s.MinAlignment < 1 {
		s.MinAlignment = 1
	}
	if s.ChunkSize > memory.MaxReadSize {
		s.ChunkSize = memory.MaxReadSize
	}
	if s.ChunkSize < pattern.Len() {
		s.ChunkSize = pattern.Len()
	}

	sorted := make([]memory_map.MemoryMapItem, len(regions))
	copy(sorted, regions)
	memory_map.Sort(sorted)

	results := []process.ProcessMemoryAddress{}
	for _, region := range sorted {
		if !region.IsReadable() || (s.WritableOnly && !region.IsWritable()) {
			continue
		}
		if s.scanRegion(r, region, pattern, &results) {
			break
		}
	}
	return results, nil
}

// scanRegion reports true once MaxResults is reached. Consecutive chunks overlap by
// len(pattern)-1 bytes, so every start position is tested once.
func (s *Searcher) scanRegion(r Reader, region memory_map.MemoryMapItem, pattern Pattern, results *[]process.ProcessMemoryAddress) bool {
	overlap := uint64(pattern.Len() - 1)
	step := uint64(s.ChunkSize) - overlap

	for start := region.Address; start < region.End(); start += step {
		size := region.End() - start
		if size > uint64(s.ChunkSize) {
			size = uint64(s.ChunkSize)
		}
		if size < uint64(pattern.Len()) {
			break
		}

		data, err := r.Read(process.ProcessMemoryAddress(start), int(size))
		if err != nil {
			log.Debugln("Skipping chunk at", process.ProcessMemoryAddress(start).ToString(), err)
			continue
		}

		for off := 0; off+pattern.Len() <= len(data); off++ {
			addr := start + uint64(off)
			if addr%uint64(s.MinAlignment) != 0 {
				continue
			}
			if pattern.Match(data[off:]) {
				*results = append(*results, process.ProcessMemoryAddress(addr))
				if s.MaxResults > 0 && len(*results) >= s.MaxResults {
					return true
				}
			}
		}
	}
	return false
}

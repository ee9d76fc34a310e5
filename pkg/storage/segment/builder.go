// Package segment implements immutable on-disk runs of time-sorted
// samples for one series. A memtable flush produces one segment file.
//
// Layout:
//
//	[Magic 4B] [NameLen 2B] [Name NB]          header
//	[Time 8B] [Value 8B] ...                   records, ascending time
//	[Time 8B] [Offset 8B] ...                  sparse index
//	[IndexStart 8B] [IndexCount 4B] [Magic 4B] footer
package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"time"
)

const (
	Magic = uint32(0x504F4C59) // "POLY"

	recordSize    = 16
	indexInterval = 100 // one sparse index entry per 100 records
	footerSize    = 8 + 4 + 4
)

type Builder struct {
	file   *os.File
	buf    *bufio.Writer
	path   string
	offset int64

	index    []indexEntry
	count    int
	lastTime float64
}

type indexEntry struct {
	time   float64
	offset int64
}

// NewBuilder creates a segment file for one series under dir. The file
// name carries a series hash and a nano timestamp so flushes never
// collide.
func NewBuilder(dir, series string) (*Builder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if len(series) > math.MaxUint16 {
		return nil, errors.New("segment: series name too long")
	}

	h := fnv.New32a()
	h.Write([]byte(series))
	path := filepath.Join(dir, fmt.Sprintf("%08x-%d.seg", h.Sum32(), time.Now().UnixNano()))

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		file:     f,
		buf:      bufio.NewWriter(f),
		path:     path,
		lastTime: math.Inf(-1),
	}

	header := make([]byte, 6)
	binary.LittleEndian.PutUint32(header[0:4], Magic)
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(series)))
	if _, err := b.buf.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := b.buf.WriteString(series); err != nil {
		f.Close()
		return nil, err
	}
	b.offset = int64(6 + len(series))

	return b, nil
}

// Add appends one record. Times must arrive in strictly ascending
// order.
func (b *Builder) Add(t, v float64) error {
	if t <= b.lastTime {
		return fmt.Errorf("segment: out of order time %v after %v", t, b.lastTime)
	}

	if b.count%indexInterval == 0 {
		b.index = append(b.index, indexEntry{time: t, offset: b.offset})
	}

	var rec [recordSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], math.Float64bits(t))
	binary.LittleEndian.PutUint64(rec[8:16], math.Float64bits(v))
	if _, err := b.buf.Write(rec[:]); err != nil {
		return err
	}

	b.offset += recordSize
	b.count++
	b.lastTime = t
	return nil
}

// Finish writes the sparse index and footer, syncs, and returns the
// segment path.
func (b *Builder) Finish() (string, error) {
	indexStart := b.offset

	var ent [16]byte
	for _, e := range b.index {
		binary.LittleEndian.PutUint64(ent[0:8], math.Float64bits(e.time))
		binary.LittleEndian.PutUint64(ent[8:16], uint64(e.offset))
		if _, err := b.buf.Write(ent[:]); err != nil {
			return "", err
		}
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], uint64(indexStart))
	binary.LittleEndian.PutUint32(footer[8:12], uint32(len(b.index)))
	binary.LittleEndian.PutUint32(footer[12:16], Magic)
	if _, err := b.buf.Write(footer); err != nil {
		return "", err
	}

	if err := b.buf.Flush(); err != nil {
		return "", err
	}
	if err := b.file.Sync(); err != nil {
		return "", err
	}
	if err := b.file.Close(); err != nil {
		return "", err
	}
	return b.path, nil
}

// Abort drops a half-built segment.
func (b *Builder) Abort() {
	b.file.Close()
	os.Remove(b.path)
}

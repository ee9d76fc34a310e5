package segment

import (
	"encoding/binary"
	"errors"
	"math"
	"os"

	"polyapprox/pkg/common"
)

var ErrBadSegment = errors.New("segment: bad magic or truncated file")

type Reader struct {
	file   *os.File
	series string

	dataStart  int64
	indexStart int64
	index      []indexEntry
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() < 6+footerSize {
		f.Close()
		return nil, ErrBadSegment
	}

	header := make([]byte, 6)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[0:4]) != Magic {
		f.Close()
		return nil, ErrBadSegment
	}
	nameLen := int(binary.LittleEndian.Uint16(header[4:6]))

	name := make([]byte, nameLen)
	if _, err := f.ReadAt(name, 6); err != nil {
		f.Close()
		return nil, err
	}

	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, st.Size()-footerSize); err != nil {
		f.Close()
		return nil, err
	}
	if binary.LittleEndian.Uint32(footer[12:16]) != Magic {
		f.Close()
		return nil, ErrBadSegment
	}

	r := &Reader{
		file:       f,
		series:     string(name),
		dataStart:  int64(6 + nameLen),
		indexStart: int64(binary.LittleEndian.Uint64(footer[0:8])),
	}

	indexCount := int(binary.LittleEndian.Uint32(footer[8:12]))
	raw := make([]byte, indexCount*16)
	if _, err := f.ReadAt(raw, r.indexStart); err != nil {
		f.Close()
		return nil, err
	}
	for i := 0; i < indexCount; i++ {
		off := i * 16
		r.index = append(r.index, indexEntry{
			time:   math.Float64frombits(binary.LittleEndian.Uint64(raw[off : off+8])),
			offset: int64(binary.LittleEndian.Uint64(raw[off+8 : off+16])),
		})
	}

	return r, nil
}

func (r *Reader) Series() string {
	return r.series
}

func (r *Reader) Count() int {
	return int((r.indexStart - r.dataStart) / recordSize)
}

// seek returns the file offset of the first sparse block that could
// hold time t.
func (r *Reader) seek(t float64) int64 {
	off := r.dataStart
	for _, e := range r.index {
		if e.time > t {
			break
		}
		off = e.offset
	}
	return off
}

// Scan returns the records with from <= t <= to, in ascending time
// order.
func (r *Reader) Scan(from, to float64) ([]common.Sample, error) {
	var out []common.Sample

	var rec [recordSize]byte
	for off := r.seek(from); off < r.indexStart; off += recordSize {
		if _, err := r.file.ReadAt(rec[:], off); err != nil {
			return nil, err
		}
		t := math.Float64frombits(binary.LittleEndian.Uint64(rec[0:8]))
		if t < from {
			continue
		}
		if t > to {
			break
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(rec[8:16]))
		out = append(out, common.Sample{Series: r.series, Time: t, Value: v})
	}
	return out, nil
}

// All reads every record in the segment.
func (r *Reader) All() ([]common.Sample, error) {
	return r.Scan(math.Inf(-1), math.Inf(1))
}

func (r *Reader) Close() error {
	return r.file.Close()
}

package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"polyapprox/pkg/common"
)

// [CRC32 4B] [Timestamp 8B] [NameLen 2B] [Time 8B] [Value 8B] [Name NB]

const (
	HeaderSize = 4 + 8 + 2 + 8 + 8 // 30 Bytes
)

type WAL struct {
	file *os.File
	mu   sync.Mutex
	buf  *bufio.Writer
}

func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &WAL{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (w *WAL) Append(rec common.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := []byte(rec.Series)
	if len(name) > math.MaxUint16 {
		return errors.New("wal: series name too long")
	}

	header := make([]byte, HeaderSize)
	ts := uint64(time.Now().UnixNano())

	binary.LittleEndian.PutUint64(header[4:12], ts)
	binary.LittleEndian.PutUint16(header[12:14], uint16(len(name)))
	binary.LittleEndian.PutUint64(header[14:22], math.Float64bits(rec.Time))
	binary.LittleEndian.PutUint64(header[22:30], math.Float64bits(rec.Value))

	checksum := crc32.NewIEEE()
	checksum.Write(header[12:])
	checksum.Write(name)
	binary.LittleEndian.PutUint32(header[0:4], checksum.Sum32())

	if _, err := w.buf.Write(header); err != nil {
		return err
	}
	if _, err := w.buf.Write(name); err != nil {
		return err
	}

	return w.buf.Flush()
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Flush()
	return w.file.Sync()
}

func (w *WAL) Close() error {
	w.buf.Flush()
	return w.file.Close()
}

func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	path := w.file.Name()
	if err := w.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	return w.file.Sync()
}

func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return 0, err
	}
	st, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

type WALIterator struct {
	reader *bufio.Reader
	file   *os.File
}

func (w *WAL) NewIterator() (*WALIterator, error) {
	f, err := os.Open(w.file.Name())
	if err != nil {
		return nil, err
	}
	return &WALIterator{
		file:   f,
		reader: bufio.NewReader(f),
	}, nil
}

func (it *WALIterator) Next() (common.Sample, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(it.reader, header); err != nil {
		return common.Sample{}, err
	}

	storedCRC := binary.LittleEndian.Uint32(header[0:4])
	nameLen := binary.LittleEndian.Uint16(header[12:14])
	t := math.Float64frombits(binary.LittleEndian.Uint64(header[14:22]))
	v := math.Float64frombits(binary.LittleEndian.Uint64(header[22:30]))

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(it.reader, name); err != nil {
		return common.Sample{}, errors.New("wal: corrupted record")
	}

	checksum := crc32.NewIEEE()
	checksum.Write(header[12:])
	checksum.Write(name)
	if checksum.Sum32() != storedCRC {
		return common.Sample{}, errors.New("wal: crc mismatch")
	}

	return common.Sample{Series: string(name), Time: t, Value: v}, nil
}

func (it *WALIterator) Close() {
	it.file.Close()
}

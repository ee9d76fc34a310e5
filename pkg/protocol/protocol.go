// Package protocol defines the binary framing used between the TCP
// server and the client SDK.
//
// Request:  [Magic 1B] [Op 1B] [SeriesLen 2B] [ArgLen 4B] [Series] [Args]
// Response: [Magic 1B] [Type 1B] [Reserved 2B] [PayloadLen 4B] [Payload]
//
// Args and numeric payloads are big-endian IEEE-754 float64 values.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	Magic = byte(0x50)

	HeaderSize = 8
)

// Operation codes
const (
	OpObserve     = byte(0x01) // args: time, value
	OpExtrapolate = byte(0x02) // args: time
	OpCoefs       = byte(0x03) // args: at
	OpHistory     = byte(0x04) // args: from, to
	OpForget      = byte(0x05) // no args
)

// Response types
const (
	RespOK  = byte(0x00) // empty payload
	RespVal = byte(0x01) // payload: float64 values
	RespErr = byte(0xFF) // payload: error message
)

var (
	ErrBadMagic  = errors.New("protocol: bad magic byte")
	ErrFrameSize = errors.New("protocol: frame too large")
)

const maxFrame = 16 << 20

// Request is one decoded client command.
type Request struct {
	Op     byte
	Series string
	Args   []float64
}

// WriteRequest frames a request onto w.
func WriteRequest(w io.Writer, req Request) error {
	series := []byte(req.Series)
	if len(series) > math.MaxUint16 {
		return ErrFrameSize
	}

	buf := make([]byte, HeaderSize+len(series)+8*len(req.Args))
	buf[0] = Magic
	buf[1] = req.Op
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(series)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(8*len(req.Args)))
	copy(buf[HeaderSize:], series)

	off := HeaderSize + len(series)
	for _, a := range req.Args {
		binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(a))
		off += 8
	}

	_, err := w.Write(buf)
	return err
}

// ReadRequest reads one framed request from r.
func ReadRequest(r io.Reader) (Request, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Request{}, err
	}
	if header[0] != Magic {
		return Request{}, ErrBadMagic
	}

	seriesLen := int(binary.BigEndian.Uint16(header[2:4]))
	argLen := int(binary.BigEndian.Uint32(header[4:8]))
	if argLen > maxFrame || argLen%8 != 0 {
		return Request{}, ErrFrameSize
	}

	body := make([]byte, seriesLen+argLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Request{}, err
	}

	req := Request{
		Op:     header[1],
		Series: string(body[:seriesLen]),
	}
	for off := seriesLen; off < len(body); off += 8 {
		req.Args = append(req.Args, math.Float64frombits(binary.BigEndian.Uint64(body[off:off+8])))
	}
	return req, nil
}

// WriteOK sends an empty success response.
func WriteOK(w io.Writer) error {
	return writeResponse(w, RespOK, nil)
}

// WriteValues sends a success response carrying float64 values.
func WriteValues(w io.Writer, vals []float64) error {
	payload := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(payload[8*i:], math.Float64bits(v))
	}
	return writeResponse(w, RespVal, payload)
}

// WriteError sends an error response with a message.
func WriteError(w io.Writer, err error) error {
	return writeResponse(w, RespErr, []byte(err.Error()))
}

func writeResponse(w io.Writer, typ byte, payload []byte) error {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = Magic
	buf[1] = typ
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadResponse reads one framed response. An RespErr frame comes back
// as a Go error with the carried message.
func ReadResponse(r io.Reader) (typ byte, vals []float64, err error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	if header[0] != Magic {
		return 0, nil, ErrBadMagic
	}

	payloadLen := int(binary.BigEndian.Uint32(header[4:8]))
	if payloadLen > maxFrame {
		return 0, nil, ErrFrameSize
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	switch header[1] {
	case RespOK:
		return RespOK, nil, nil
	case RespErr:
		return RespErr, nil, errors.New(string(payload))
	case RespVal:
		if payloadLen%8 != 0 {
			return 0, nil, ErrFrameSize
		}
		vals = make([]float64, payloadLen/8)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[8*i:]))
		}
		return RespVal, vals, nil
	default:
		return 0, nil, errors.New("protocol: unknown response type")
	}
}

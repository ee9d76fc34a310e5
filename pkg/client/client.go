// Package client is the Go SDK for the binary TCP interface.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"polyapprox/pkg/common"
	"polyapprox/pkg/protocol"
)

type Client struct {
	addr string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

func Dial(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := net.DialTimeout("tcp", c.addr, 3*time.Second)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.writer = bufio.NewWriter(conn)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// roundTrip sends one request and reads its response, reconnecting
// once on a broken connection.
func (c *Client) roundTrip(req protocol.Request) (byte, []float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	typ, vals, err := c.sendLocked(req)
	if err == nil {
		return typ, vals, nil
	}
	if !isConnError(err) {
		return typ, vals, err
	}

	if c.conn != nil {
		c.conn.Close()
	}
	if rerr := c.connect(); rerr != nil {
		return 0, nil, fmt.Errorf("reconnect: %w", rerr)
	}
	return c.sendLocked(req)
}

func (c *Client) sendLocked(req protocol.Request) (byte, []float64, error) {
	if c.conn == nil {
		return 0, nil, errors.New("client: closed")
	}
	if err := protocol.WriteRequest(c.writer, req); err != nil {
		return 0, nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return 0, nil, err
	}
	return protocol.ReadResponse(c.reader)
}

func isConnError(err error) bool {
	var netErr net.Error
	return errors.Is(err, net.ErrClosed) || errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) expectOK(req protocol.Request) error {
	typ, _, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if typ != protocol.RespOK {
		return fmt.Errorf("client: unexpected response type %d", typ)
	}
	return nil
}

func (c *Client) expectValues(req protocol.Request) ([]float64, error) {
	typ, vals, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if typ != protocol.RespVal {
		return nil, fmt.Errorf("client: unexpected response type %d", typ)
	}
	return vals, nil
}

// Observe feeds one sample into a series.
func (c *Client) Observe(series string, t, v float64) error {
	return c.expectOK(protocol.Request{
		Op:     protocol.OpObserve,
		Series: series,
		Args:   []float64{t, v},
	})
}

// Extrapolate evaluates the series polynomial at the given moment.
func (c *Client) Extrapolate(series string, t float64) (float64, error) {
	vals, err := c.expectValues(protocol.Request{
		Op:     protocol.OpExtrapolate,
		Series: series,
		Args:   []float64{t},
	})
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("client: expected one value, got %d", len(vals))
	}
	return vals[0], nil
}

// Coefs returns the power-basis coefficients around the given moment.
func (c *Client) Coefs(series string, at float64) ([]float64, error) {
	return c.expectValues(protocol.Request{
		Op:     protocol.OpCoefs,
		Series: series,
		Args:   []float64{at},
	})
}

// History returns the stored samples of a series in [from, to].
func (c *Client) History(series string, from, to float64) ([]common.Sample, error) {
	vals, err := c.expectValues(protocol.Request{
		Op:     protocol.OpHistory,
		Series: series,
		Args:   []float64{from, to},
	})
	if err != nil {
		return nil, err
	}
	if len(vals)%2 != 0 {
		return nil, errors.New("client: odd history payload")
	}

	recs := make([]common.Sample, 0, len(vals)/2)
	for i := 0; i < len(vals); i += 2 {
		recs = append(recs, common.Sample{Series: series, Time: vals[i], Value: vals[i+1]})
	}
	return recs, nil
}

// Forget drops a series on the server.
func (c *Client) Forget(series string) error {
	return c.expectOK(protocol.Request{Op: protocol.OpForget, Series: series})
}

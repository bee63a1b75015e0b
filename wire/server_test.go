package wire

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
)

// script describes how the fake server answers one connection.
type script struct {
	reply string
	chunk int  // write the reply in pieces of this many bytes
	drop  bool // close without reading the request
	hang  bool // read the request and never answer
}

// fakeServer hands out in-memory connections, records each request frame
// and answers from a queue of scripts.
type fakeServer struct {
	t *testing.T

	mu       sync.Mutex
	scripts  []script
	requests []string
	dials    int
	closes   int
	dialErr  error
	wg       sync.WaitGroup
}

func newFakeServer(t *testing.T, scripts ...script) *fakeServer {
	t.Helper()
	s := &fakeServer{t: t, scripts: scripts}
	t.Cleanup(s.wg.Wait)
	return s
}

func (s *fakeServer) client(t *testing.T, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, WithDialer(s))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func (s *fakeServer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	s.mu.Lock()
	s.dials++
	if s.dialErr != nil {
		err := s.dialErr
		s.mu.Unlock()
		return nil, err
	}
	if len(s.scripts) == 0 {
		s.mu.Unlock()
		s.t.Errorf("unexpected dial to %s", address)
		return nil, io.ErrClosedPipe
	}
	sc := s.scripts[0]
	s.scripts = s.scripts[1:]
	s.mu.Unlock()

	clientSide, serverSide := net.Pipe()
	s.wg.Add(1)
	go s.serve(serverSide, sc)
	return &trackedConn{Conn: clientSide, server: s}, nil
}

func (s *fakeServer) serve(conn net.Conn, sc script) {
	defer s.wg.Done()
	defer conn.Close()

	if sc.drop {
		return
	}

	var raw bytes.Buffer
	if _, err := NewReader(io.TeeReader(conn, &raw), 64).ReadReply(); err != nil {
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, raw.String())
	s.mu.Unlock()

	if sc.hang {
		_, _ = io.Copy(io.Discard, conn)
		return
	}

	reply := []byte(sc.reply)
	chunk := sc.chunk
	if chunk <= 0 {
		chunk = len(reply)
	}
	for len(reply) > 0 {
		n := min(chunk, len(reply))
		if _, err := conn.Write(reply[:n]); err != nil {
			return
		}
		reply = reply[n:]
	}
}

func (s *fakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *fakeServer) Counts() (dials, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials, s.closes
}

type trackedConn struct {
	net.Conn
	server *fakeServer
	once   sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(func() {
		c.server.mu.Lock()
		c.server.closes++
		c.server.mu.Unlock()
	})
	return c.Conn.Close()
}

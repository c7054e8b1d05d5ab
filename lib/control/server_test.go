// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// received is one request as seen by the scripted server.
type received struct {
	Method        string
	Path          string
	Header        http.Header
	ContentLength int64
	Body          []byte
	Connection    int
}

// reply is the scripted server's answer to one request.
type reply struct {
	// raw is written verbatim. Empty writes nothing.
	raw string

	// chunk, when nonzero, splits raw into writes of this many bytes.
	chunk int

	// hangup closes the connection after raw is written.
	hangup bool
}

// scriptedServer is a raw TCP server that parses requests with
// http.ReadRequest and answers with byte-exact scripted replies.
type scriptedServer struct {
	t        testing.TB
	listener net.Listener
	handler  func(request received) reply

	mu          sync.Mutex
	requests    []received
	connections int
	open        []net.Conn
}

func newScriptedServer(t testing.TB, handler func(request received) reply) *scriptedServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := &scriptedServer{t: t, listener: listener, handler: handler}
	go server.serve()
	t.Cleanup(server.close)
	return server
}

func (s *scriptedServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.connections++
		number := s.connections
		s.open = append(s.open, conn)
		s.mu.Unlock()
		go s.serveConn(conn, number)
	}
}

func (s *scriptedServer) serveConn(conn net.Conn, number int) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		request, err := http.ReadRequest(reader)
		if err != nil {
			return
		}
		body, err := io.ReadAll(request.Body)
		if err != nil {
			return
		}
		seen := received{
			Method:        request.Method,
			Path:          request.URL.Path,
			Header:        request.Header,
			ContentLength: request.ContentLength,
			Body:          body,
			Connection:    number,
		}
		s.mu.Lock()
		s.requests = append(s.requests, seen)
		s.mu.Unlock()

		answer := s.handler(seen)
		if err := writeChunked(conn, answer.raw, answer.chunk); err != nil {
			return
		}
		if answer.hangup {
			return
		}
	}
}

func writeChunked(conn net.Conn, raw string, chunk int) error {
	if chunk <= 0 {
		chunk = len(raw)
	}
	for len(raw) > 0 {
		n := min(chunk, len(raw))
		if _, err := io.WriteString(conn, raw[:n]); err != nil {
			return err
		}
		raw = raw[n:]
	}
	return nil
}

func (s *scriptedServer) close() {
	s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.open {
		conn.Close()
	}
}

func (s *scriptedServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *scriptedServer) seen() []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]received(nil), s.requests...)
}

func (s *scriptedServer) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// client returns a client for the server with test-friendly timeouts.
func (s *scriptedServer) client(t testing.TB, modify func(*Options)) *Client {
	t.Helper()
	options := Options{
		Host:           "127.0.0.1",
		Port:           s.port(),
		APIVersion:     "1.8.0",
		RequestTimeout: 5 * time.Second,
		PollInterval:   time.Millisecond,
	}
	if modify != nil {
		modify(&options)
	}
	client, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// respond formats a reply with a correct Content-Length.
func respond(status int, body string, headers ...string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for _, header := range headers {
		builder.WriteString(header + "\r\n")
	}
	builder.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n")
	builder.WriteString(body)
	return builder.String()
}

// always answers every request with the same reply.
func always(answer reply) func(received) reply {
	return func(received) reply { return answer }
}

// connected returns the number of slots holding an open connection.
func (p *pool) connected() int {
	count := 0
	for _, s := range p.slots {
		if s.mu.TryLock() {
			if !s.closed {
				count++
			}
			s.mu.Unlock()
		}
	}
	return count
}

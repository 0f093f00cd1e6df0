// Package sse provides Server-Sent Events broadcasting of modeling events.
package sse

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher.
type mockResponseWriter struct {
	header  http.Header
	body    []byte
	flushed bool
	mu      sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = append(m.body, b...)
	return len(b), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
}

func (m *mockResponseWriter) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// TestNewBroadcaster tests broadcaster creation.
func (s *BroadcasterSuite) TestNewBroadcaster() {
	s.NotNil(s.broadcaster.clients)
	s.Equal(0, s.broadcaster.ClientCount())
}

// TestAddRemoveClient tests subscriber lifecycle.
func (s *BroadcasterSuite) TestAddRemoveClient() {
	w := newMockResponseWriter()
	client, err := s.broadcaster.addClient(w)
	s.Require().NoError(err)
	s.Equal(1, s.broadcaster.ClientCount())

	s.broadcaster.removeClient(client.id)
	s.Equal(0, s.broadcaster.ClientCount())

	// Removing twice is harmless.
	s.broadcaster.removeClient(client.id)
	s.Equal(0, s.broadcaster.ClientCount())
}

// TestAddClientWithoutFlusher tests rejection of non-streaming writers.
func (s *BroadcasterSuite) TestAddClientWithoutFlusher() {
	var w nonFlushingWriter
	_, err := s.broadcaster.addClient(&w)
	s.Error(err)
	s.Equal(0, s.broadcaster.ClientCount())
}

type nonFlushingWriter struct{}

func (nonFlushingWriter) Header() http.Header       { return make(http.Header) }
func (nonFlushingWriter) Write(b []byte) (int, error) { return len(b), nil }
func (nonFlushingWriter) WriteHeader(int)           {}

// TestPublish tests event fan-out to all clients.
func (s *BroadcasterSuite) TestPublish() {
	w1 := newMockResponseWriter()
	w2 := newMockResponseWriter()
	_, err := s.broadcaster.addClient(w1)
	s.Require().NoError(err)
	_, err = s.broadcaster.addClient(w2)
	s.Require().NoError(err)

	s.broadcaster.Publish(Event{SessionID: "sess", Kind: "plane_created", ObjectID: "plane_1"})

	for _, w := range []*mockResponseWriter{w1, w2} {
		out := w.String()
		s.True(strings.HasPrefix(out, "data: "))
		s.Contains(out, `"kind":"plane_created"`)
		s.Contains(out, `"object_id":"plane_1"`)
		s.True(strings.HasSuffix(out, "\n\n"))
	}
}

// TestPublishWithNoClients tests that publishing into the void is safe.
func (s *BroadcasterSuite) TestPublishWithNoClients() {
	s.NotPanics(func() {
		s.broadcaster.Publish(Event{Kind: "noop"})
	})
}

// TestPublishOmitsEmptyObjectID tests the omitempty contract.
func (s *BroadcasterSuite) TestPublishOmitsEmptyObjectID() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.addClient(w)
	s.Require().NoError(err)

	s.broadcaster.Publish(Event{SessionID: "sess", Kind: "model_cleared"})
	s.NotContains(w.String(), "object_id")
}

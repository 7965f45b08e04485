/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package counter

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/srv"
)

const (
	ReadBufferSize = 4096
)

// Server accepts protocol connections. Every connection gets its own
// goroutine and Framer, all of them share one Dispatcher.
type Server struct {
	*config.ServerConfig
	dispatcher Dispatcher

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer ...
func NewServer(cfg *config.ServerConfig, dispatcher Dispatcher) *Server {
	log.Debug("Initializing counter server with address: %s port: %d", cfg.Address, cfg.Port)
	return &Server{
		ServerConfig: cfg,
		dispatcher:   dispatcher,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Run listens on the configured endpoint and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.Endpoint(s.Address, s.Port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Accept fails. When
// it returns, the listener and every connection are closed and all
// connection goroutines have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info("Starting counter server: %s", ln.Addr())
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()
	defer func() {
		cancel()
		<-stopped
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Counter server stopped")
				return nil
			}
			log.Error("Error while accepting connection: %s", err)
			return err
		}
		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// Connections returns the number of open connections
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr()
	log.Info("Accepted connection from %s", peer)
	defer func() {
		conn.Close()
		s.untrack(conn)
	}()

	framer := NewFramer(s.dispatcher, s.MaxCommandLength)
	buffer := make([]byte, ReadBufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			if _, writeErr := framer.Feed(ctx, buffer[:n], conn); writeErr != nil {
				log.Error("Error while writing to %s: %s", peer, writeErr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Info("Connection from %s closed", peer)
			} else {
				log.Error("Error while reading from %s: %s", peer, err)
			}
			return
		}
	}
}

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
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/config"
	counterpkg "jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/dispatch"
	"jinr.ru/greenlab/go-counter/pkg/handlers"
	"jinr.ru/greenlab/go-counter/pkg/pins"
	"jinr.ru/greenlab/go-counter/pkg/regs"
	"jinr.ru/greenlab/go-counter/pkg/sim"
)

func newEngine(t *testing.T) *counterpkg.Engine {
	t.Helper()
	s := sim.New(
		sim.WithRates(counterpkg.Counts{1000, 2000}),
		sim.WithClock(sim.StepClock(time.Unix(0, 0), time.Millisecond)),
	)
	e := counterpkg.NewEngine(regs.NewBlock("counter", s.Opener()),
		counterpkg.WithPollInterval(0), counterpkg.WithWaitTimeout(5*time.Second))
	if err := e.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func newTable(t *testing.T, e *counterpkg.Engine, opts handlers.Options) *dispatch.Table {
	t.Helper()
	return handlers.New(e, pins.NewMemory(), opts)
}

type testServer struct {
	*Server
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func startServer(t *testing.T, maxLength int) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.ServerConfig{Address: "127.0.0.1", MaxCommandLength: maxLength}
	s := &testServer{
		Server: NewServer(cfg, newTable(t, newEngine(t), handlers.Options{})),
		addr:   ln.Addr().String(),
		done:   make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		s.done <- s.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-s.done
	})
	return s
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &client{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(data string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, data); err != nil {
		c.t.Fatal(err)
	}
}

func (c *client) line() string {
	c.t.Helper()
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatal(err)
	}
	if !strings.HasSuffix(line, "\r\n") {
		c.t.Fatalf("response %q is not delimited", line)
	}
	return strings.TrimSuffix(line, "\r\n")
}

func (c *client) query(command string) string {
	c.t.Helper()
	c.send(command + "\r\n")
	return c.line()
}

func checkCounts(t *testing.T, line string) {
	t.Helper()
	fields := strings.Split(line, ",")
	if len(fields) != counterpkg.NumChannels {
		t.Fatalf("%q: %d fields", line, len(fields))
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			t.Errorf("%q: field %q", line, f)
		}
	}
}

func TestServerProtocol(t *testing.T) {
	s := startServer(t, 0)
	c := dial(t, s.addr)

	steps := []struct {
		command string
		want    string
	}{
		{"COUNTER:BINS:NO 10", "OK"},
		{"COUNTER:BINS:NO?", "10"},
		{"FOO:BAR", "ERR: Unknown command FOO:BAR"},
		{"COUNTER:STATE?", "idle"},
		{"COUNTER:TRIG:CONF 1,0,1", "OK"},
		{"COUNTER:TRIG:CONF?", "1,0,1"},
	}
	for _, step := range steps {
		if got := c.query(step.command); got != step.want {
			t.Errorf("%s: got %q, want %q", step.command, got, step.want)
		}
	}

	c.send("COUNTER:TIME 0.01\r\nCOUNTER:TIME?\r")
	if got := c.line(); got != "OK" {
		t.Fatalf("COUNTER:TIME: %q", got)
	}
	time.Sleep(20 * time.Millisecond)
	c.send("\n")
	if got := c.line(); got != "0.01" {
		t.Fatalf("COUNTER:TIME?: %q", got)
	}

	checkCounts(t, c.query("COUNTER:COUNT:SING?"))
}

func TestServerCommandTooLong(t *testing.T) {
	s := startServer(t, 16)
	c := dial(t, s.addr)
	c.send(strings.Repeat("X", 17))
	if got := c.line(); got != "ERR: Command too long" {
		t.Fatalf("got %q", got)
	}
	c.send(" COUNTER:BINS:NO 7\r\n")
	if got := c.query("COUNTER:BINS:NO?"); got != "1" {
		t.Errorf("tail of the long command was dispatched: %q", got)
	}
	if got := c.query("COUNTER:NO?"); got != "2" {
		t.Errorf("after discard: %q", got)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	s := startServer(t, 0)
	if got := dial(t, s.addr).query("COUNTER:TIME 0.005"); got != "OK" {
		t.Fatal(got)
	}

	const clients = 4
	var wg sync.WaitGroup
	lines := make(chan string, clients*5)
	for i := 0; i < clients; i++ {
		c := dial(t, s.addr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := io.WriteString(c.conn, "COUNTER:COUNT:SING?\r\n"); err != nil {
					return
				}
				line, err := c.r.ReadString('\n')
				if err != nil {
					return
				}
				lines <- strings.TrimSuffix(line, "\r\n")
			}
		}()
	}
	wg.Wait()
	close(lines)

	n := 0
	for line := range lines {
		checkCounts(t, line)
		n++
	}
	if n != clients*5 {
		t.Errorf("got %d responses", n)
	}
}

func TestServerShutdown(t *testing.T) {
	s := startServer(t, 0)
	c := dial(t, s.addr)
	if got := c.query("COUNTER:STATE?"); got != "idle" {
		t.Fatal(got)
	}
	if s.Connections() != 1 {
		t.Errorf("%d connections", s.Connections())
	}

	s.cancel()
	if err := <-s.done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
	s.done <- nil

	if _, err := c.r.ReadString('\n'); err == nil {
		t.Error("connection still open after shutdown")
	}
	if s.Connections() != 0 {
		t.Errorf("%d connections after shutdown", s.Connections())
	}
	if _, err := net.Dial("tcp", s.addr); err == nil {
		t.Error("listener still accepting")
	}
}

func TestServerListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(&config.ServerConfig{}, &echo{})
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(context.Background(), ln)
	}()
	ln.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Serve returned nil after the listener failed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

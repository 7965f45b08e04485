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

package command

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/layers"
	"jinr.ru/greenlab/go-counter/pkg/srv"
)

var ErrEmptyCommand = errors.New("Empty command")

// Client speaks the line protocol over a single TCP connection.
// It is not safe for concurrent use.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the counter server described by cfg. A wildcard listen
// address is reached through the loopback interface.
func Dial(ctx context.Context, cfg *config.ServerConfig) (*Client, error) {
	host := cfg.Address
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", srv.Endpoint(host, cfg.Port))
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

// Send writes one command line and waits for its response. Error responses
// are returned as a layer with Error set, not as a Go error.
func (c *Client) Send(ctx context.Context, line string) (*layers.ResponseLayer, error) {
	tokens := layers.Tokenize(line)
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}
	data, err := layers.CommandToBytes(tokens[0], tokens[1:]...)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, err
	}
	resp, err := c.readLine()
	if err != nil {
		return nil, err
	}
	return layers.ParseResponse(resp)
}

// readLine reads up to and including the CRLF delimiter
func (c *Client) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := c.r.ReadBytes('\n')
		line = append(line, chunk...)
		if err != nil {
			return nil, err
		}
		if len(line) >= len(layers.Delimiter) && string(line[len(line)-len(layers.Delimiter):]) == layers.Delimiter {
			return line, nil
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

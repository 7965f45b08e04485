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

package dispatch

import (
	"context"

	"jinr.ru/greenlab/go-counter/pkg/layers"
)

// Handler serves one command. The returned text is the response payload.
type Handler func(ctx context.Context, args []string) (string, error)

// Entry binds a command name to its handler
type Entry struct {
	Name    string
	Help    string
	Handler Handler
}

// Request is a tokenized command
type Request struct {
	Name string
	Args []string
}

// Response is the outcome of a dispatched command
type Response struct {
	Text string
	Err  error
}

// Layer converts the response to its wire layer
func (r Response) Layer() *layers.ResponseLayer {
	if r.Err != nil {
		return &layers.ResponseLayer{Text: r.Err.Error(), Error: true}
	}
	return &layers.ResponseLayer{Text: r.Text}
}

// String renders the response line without delimiter
func (r Response) String() string {
	return r.Layer().Line()
}

// Bytes renders the response line including the delimiter
func (r Response) Bytes() ([]byte, error) {
	return layers.ResponseToBytes(r.Layer())
}

// Table is an immutable list of commands. Lookup is linear and the
// first entry with a matching name wins.
type Table struct {
	entries []Entry
}

// NewTable ...
func NewTable(entries ...Entry) *Table {
	t := &Table{
		entries: make([]Entry, len(entries)),
	}
	copy(t.entries, entries)
	return t
}

// Lookup returns the first entry registered under name
func (t *Table) Lookup(name string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Dispatch runs the handler for req and captures its outcome
func (t *Table) Dispatch(ctx context.Context, req Request) Response {
	entry, ok := t.Lookup(req.Name)
	if !ok {
		return Response{Err: ErrUnknownCommand{Name: req.Name}}
	}
	text, err := entry.Handler(ctx, req.Args)
	return Response{Text: text, Err: err}
}

// Names lists the registered commands in order
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	return names
}

// Entries returns a copy of the table
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

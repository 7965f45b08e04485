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
	"io"

	"jinr.ru/greenlab/go-counter/pkg/dispatch"
	"jinr.ru/greenlab/go-counter/pkg/layers"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/srv"
)

// Dispatcher runs a decoded request. *dispatch.Table implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Response
}

// Framer reassembles delimited commands from a byte stream. It is owned by
// one connection and is not safe for concurrent use.
type Framer struct {
	dispatcher Dispatcher
	maxLength  int
	buf        []byte
	// discarding drops bytes through the next delimiter after an over-long command
	discarding bool
}

// NewFramer ... maxLength <= 0 disables the command length limit
func NewFramer(dispatcher Dispatcher, maxLength int) *Framer {
	return &Framer{
		dispatcher: dispatcher,
		maxLength:  maxLength,
		buf:        make([]byte, 0, 1024),
	}
}

// Pending returns the number of buffered bytes that do not form a complete command yet
func (f *Framer) Pending() int {
	return len(f.buf)
}

// nextDelimiter returns the index where the first complete delimiter at or
// after from starts, or -1. A match on the last delimiter byte is confirmed
// by walking backwards over the rest of the delimiter.
func nextDelimiter(buf []byte, from int) int {
	d := layers.Delimiter
	last := d[len(d)-1]
	for i := from + len(d) - 1; i < len(buf); i++ {
		if buf[i] != last {
			continue
		}
		j := 1
		for ; j < len(d); j++ {
			if buf[i-j] != d[len(d)-1-j] {
				break
			}
		}
		if j == len(d) {
			return i - len(d) + 1
		}
	}
	return -1
}

// Feed appends data to the buffer, dispatches every complete command and
// writes one response per command to w. It returns the number of
// dispatched commands. Write errors are returned as is.
func (f *Framer) Feed(ctx context.Context, data []byte, w io.Writer) (int, error) {
	f.buf = append(f.buf, data...)

	if f.discarding {
		end := nextDelimiter(f.buf, 0)
		if end < 0 {
			f.keepPartialDelimiter()
			return 0, nil
		}
		f.compact(end + len(layers.Delimiter))
		f.discarding = false
	}

	handled := 0
	start := 0
	for {
		end := nextDelimiter(f.buf, start)
		if end < 0 {
			break
		}
		line := f.buf[start:end]
		start = end + len(layers.Delimiter)

		if err := f.handle(ctx, line, w, &handled); err != nil {
			f.compact(start)
			return handled, err
		}
	}
	f.compact(start)

	if f.maxLength > 0 && len(f.buf) > f.maxLength {
		log.Warning("Discarding command longer than %d bytes", f.maxLength)
		f.discarding = true
		f.keepPartialDelimiter()
		if err := f.write(w, dispatch.Response{Err: srv.ErrCommandTooLong}); err != nil {
			return handled, err
		}
	}
	return handled, nil
}

func (f *Framer) handle(ctx context.Context, line []byte, w io.Writer, handled *int) error {
	cmd, err := layers.ParseCommand(line)
	if err != nil {
		log.Error("Error while decoding command: %s", err)
		return f.write(w, dispatch.Response{Err: err})
	}
	if cmd.Name == "" {
		log.Debug("Skipping empty command line")
		return nil
	}
	log.Debug("Dispatching %s", cmd.Line())
	resp := f.dispatcher.Dispatch(ctx, dispatch.Request{Name: cmd.Name, Args: cmd.Args})
	*handled++
	return f.write(w, resp)
}

// keepPartialDelimiter drops everything but the bytes that may start a
// delimiter split across reads
func (f *Framer) keepPartialDelimiter() {
	if keep := len(layers.Delimiter) - 1; len(f.buf) > keep {
		f.compact(len(f.buf) - keep)
	}
}

// compact moves the unprocessed tail to the front of the buffer
func (f *Framer) compact(start int) {
	if start == 0 {
		return
	}
	n := copy(f.buf, f.buf[start:])
	f.buf = f.buf[:n]
}

func (f *Framer) write(w io.Writer, resp dispatch.Response) error {
	data, err := resp.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

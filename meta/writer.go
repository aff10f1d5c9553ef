package meta

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

// maxPooledBuffer keeps oversized ms payload buffers out of the pool.
const maxPooledBuffer = 64 * 1024

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// stringWriter is satisfied by both bufio.Writer and bytes.Buffer.
type stringWriter interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

// WriteRequest serializes req and writes it to w.
//
//	<cmd> <key> [<size>] <flags>*\r\n[<data>\r\n]
//
// The key is validated first; an invalid key writes nothing. A bufio.Writer is
// written to directly and left unflushed so that pipelined requests can share
// one flush. Any other writer receives the request in at most two writes.
func WriteRequest(w io.Writer, req *Request) error {
	if req.Command != CmdNoOp && req.Command != CmdFlushAll {
		if err := ValidateKey(req.Key, req.HasFlag(FlagBase64Key)); err != nil {
			return err
		}
	}

	if bw, ok := w.(*bufio.Writer); ok {
		return writeRequestTo(bw, req)
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := writeRequestTo(buf, req); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeRequestTo(w stringWriter, req *Request) error {
	w.WriteString(string(req.Command))

	switch req.Command {
	case CmdNoOp:
		_, err := w.WriteString(CRLF)
		return err

	case CmdFlushAll:
		if len(req.Data) > 0 {
			w.WriteString(Space)
			w.Write(req.Data)
		}
		_, err := w.WriteString(CRLF)
		return err
	}

	w.WriteString(Space)
	w.WriteString(req.Key)

	if req.Command == CmdSet {
		w.WriteString(Space)
		w.WriteString(strconv.Itoa(len(req.Data)))
	}

	for _, flag := range req.Flags {
		w.WriteString(Space)
		w.WriteByte(byte(flag.Type))
		w.WriteString(flag.Token)
	}

	_, err := w.WriteString(CRLF)
	if err != nil {
		return err
	}

	if req.Command == CmdSet {
		if _, err := w.Write(req.Data); err != nil {
			return err
		}
		_, err = w.WriteString(CRLF)
	}
	return err
}

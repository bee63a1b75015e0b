package wire

import (
	"bufio"
	"io"
	"strconv"
)

// Kind identifies the type byte that opens a reply.
type Kind byte

const (
	KindSimple  Kind = '+'
	KindError   Kind = '-'
	KindInteger Kind = ':'
	KindBulk    Kind = '$'
	KindArray   Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	}
	return "unknown(" + strconv.Quote(string(rune(k))) + ")"
}

// maxBulkLength mirrors the server-side limit on a single bulk string.
const maxBulkLength = 512 << 20

// maxNesting bounds array nesting in a single reply.
const maxNesting = 64

// maxLineLength bounds a single header or simple reply line, excluding CRLF.
const maxLineLength = 64 << 10

// Reply is one decoded server reply.
type Reply struct {
	Kind Kind

	// Str holds the text of simple string and error replies.
	Str string

	// Int holds the value of integer replies.
	Int int64

	// Bulk holds the payload of a non-null bulk reply. An empty payload is
	// distinct from Null.
	Bulk []byte

	// Array holds the elements of a non-null array reply.
	Array []Reply

	// Null is set for $-1 and *-1.
	Null bool
}

// ProtocolError reports a reply that does not follow the framing rules.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Message
}

// ServerError carries the text of an error reply.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server replied: " + e.Message
}

// Reader decodes replies from a byte stream. It reads exactly the bytes each
// reply declares, so replies split across many reads or larger than the
// buffer are reassembled.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r with a buffer of size bytes.
func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	return &Reader{br: bufio.NewReaderSize(r, size)}
}

// ReadReply decodes the next reply from the stream.
func (r *Reader) ReadReply() (Reply, error) {
	return r.readReply(0)
}

func (r *Reader) readReply(depth int) (Reply, error) {
	if depth > maxNesting {
		return Reply{}, &ProtocolError{Message: "array nesting too deep"}
	}

	line, err := r.readLine()
	if err != nil {
		return Reply{}, err
	}
	if len(line) == 0 {
		return Reply{}, &ProtocolError{Message: "empty reply line"}
	}

	kind, body := Kind(line[0]), line[1:]
	switch kind {
	case KindSimple, KindError:
		return Reply{Kind: kind, Str: body}, nil

	case KindInteger:
		n, err := parseInt(body)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: kind, Int: n}, nil

	case KindBulk:
		n, err := parseLength(body, maxBulkLength)
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return Reply{Kind: kind, Null: true}, nil
		}
		payload, err := r.readBulk(n)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: kind, Bulk: payload}, nil

	case KindArray:
		n, err := parseLength(body, maxBulkLength)
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return Reply{Kind: kind, Null: true}, nil
		}
		elems := make([]Reply, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			elem, err := r.readReply(depth + 1)
			if err != nil {
				return Reply{}, err
			}
			elems = append(elems, elem)
		}
		return Reply{Kind: kind, Array: elems}, nil
	}

	return Reply{}, &ProtocolError{Message: "unexpected reply type " + strconv.Quote(string(line[:1]))}
}

// readLine returns the next CRLF terminated line without its terminator.
// Lines longer than maxLineLength are rejected.
func (r *Reader) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(buf)+len(chunk) > maxLineLength+2 {
			return "", &ProtocolError{Message: "line exceeds " + strconv.Itoa(maxLineLength) + " bytes"}
		}
		buf = append(buf, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return "", io.ErrUnexpectedEOF
				}
				return "", &ProtocolError{Message: "reply truncated before line terminator"}
			}
			return "", err
		}
		break
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return "", &ProtocolError{Message: "line not terminated by CRLF"}
	}
	return string(buf[:len(buf)-2]), nil
}

func (r *Reader) readBulk(n int) ([]byte, error) {
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &ProtocolError{Message: "bulk payload shorter than declared length " + strconv.Itoa(n)}
		}
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, &ProtocolError{Message: "bulk payload not terminated by CRLF"}
	}
	return buf[:n], nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ProtocolError{Message: "invalid integer " + strconv.Quote(s)}
	}
	return n, nil
}

// parseLength parses a declared length. -1 marks a null reply and is
// returned as is.
func parseLength(s string, limit int) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if n < -1 || n > int64(limit) {
		return 0, &ProtocolError{Message: "invalid length " + s}
	}
	return int(n), nil
}

package wire

import (
	"fmt"
	"strconv"
	"time"
)

const crlf = "\r\n"

// BuildCommand frames args as a request array:
//
//	*<argc>\r\n$<len>\r\n<arg>\r\n...
//
// Each argument is rendered to text first. Strings and byte slices are sent
// verbatim, integers in decimal, durations as whole seconds, Stringers via
// String and everything else via fmt.Sprint.
func BuildCommand(args ...any) []byte {
	buf := make([]byte, 0, 16*(len(args)+1))
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, crlf...)

	for _, arg := range args {
		text := argumentBytes(arg)
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(text)), 10)
		buf = append(buf, crlf...)
		buf = append(buf, text...)
		buf = append(buf, crlf...)
	}
	return buf
}

func argumentBytes(arg any) []byte {
	switch v := arg.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case time.Duration:
		return strconv.AppendInt(nil, int64(v/time.Second), 10)
	case int:
		return strconv.AppendInt(nil, int64(v), 10)
	case int64:
		return strconv.AppendInt(nil, v, 10)
	case int32:
		return strconv.AppendInt(nil, int64(v), 10)
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10)
	case uint64:
		return strconv.AppendUint(nil, v, 10)
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10)
	case fmt.Stringer:
		return []byte(v.String())
	default:
		return []byte(fmt.Sprint(v))
	}
}

// commandName returns the command verb used in error reports.
func commandName(args []any) string {
	if len(args) == 0 {
		return ""
	}
	return string(argumentBytes(args[0]))
}

// commandKey returns the first argument after the verb, which is the key for
// every command this client issues.
func commandKey(args []any) string {
	if len(args) < 2 {
		return ""
	}
	return string(argumentBytes(args[1]))
}

package policycache

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
)

// Memcached text protocol subset: set, get, gets and stats.
const (
	Separator = "\r\n"

	SetCommand   = "set"
	GetCommand   = "get"
	GetsCommand  = "gets"
	StatsCommand = "stats"

	NoReplyOption = "noreply"

	StoredResponse      = "STORED"
	ValueResponse       = "VALUE"
	StatResponse        = "STAT"
	EndResponse         = "END"
	ErrorResponse       = "ERROR"
	ClientErrorResponse = "CLIENT_ERROR"
	ServerErrorResponse = "SERVER_ERROR"
)

// Limits.
const (
	MaxKeySize         = 250
	MaxItemSize        = 128 << 20
	DefaultMaxItemSize = 1 << 20
	MaxCommandSize     = 4 << 10

	InBufferSize  = 16 << 10
	OutBufferSize = 16 << 10
)

var _ = func() (_ struct{}) {
	if MaxCommandSize > InBufferSize {
		panic("max command should fit in input buffer")
	}
	return
}()

var (
	ErrTooLargeKey          = errors.New("too large key")
	ErrTooLargeItem         = errors.New("too large item")
	ErrInvalidOption        = errors.New("invalid option")
	ErrTooManyFields        = errors.New("too many fields")
	ErrMoreFieldsRequired   = errors.New("more fields required")
	ErrTooLargeCommand      = errors.New("command length is too big")
	ErrEmptyCommand         = errors.New("empty command")
	ErrFieldsParseError     = errors.New("fields parse error")
	ErrInvalidLineSeparator = errors.New("invalid line separator")
	ErrInvalidCharInKey     = errors.New("key contains invalid characters")

	separatorBytes = []byte(Separator)
)

// command is parsed command line. Slices point into reader buffer,
// and are valid only until next read.
type command struct {
	name   []byte
	fields [][]byte
}

func checkKey(key []byte) error {
	if len(key) > MaxKeySize {
		return stackerr.Wrap(ErrTooLargeKey)
	}
	for _, b := range key {
		// Control chars and whitespace.
		if b <= ' ' || b == 0x7f {
			return stackerr.Wrap(ErrInvalidCharInKey)
		}
	}
	return nil
}

func checkKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return stackerr.Wrap(ErrMoreFieldsRequired)
	}
	for _, k := range keys {
		if err := checkKey(k); err != nil {
			return err
		}
	}
	return nil
}

// splitOptions separates required fields from trailing noreply option.
func splitOptions(fields [][]byte, required int) (args [][]byte, noreply bool, err error) {
	switch {
	case len(fields) < required:
		err = stackerr.Wrap(ErrMoreFieldsRequired)
	case len(fields) > required+1:
		err = stackerr.Wrap(ErrTooManyFields)
	case len(fields) == required+1:
		if string(fields[required]) != NoReplyOption {
			err = stackerr.Wrap(ErrInvalidOption)
			return
		}
		noreply = true
		fallthrough
	default:
		args = fields[:required]
	}
	return
}

func parseUint32(field []byte) (uint32, error) {
	v, err := strconv.ParseUint(string(field), 10, 32)
	if err != nil {
		return 0, stackerr.Newf("%s: %s", ErrFieldsParseError, err)
	}
	return uint32(v), nil
}

// parseSetFields parses "<key> <flags> <exptime> <bytes> [noreply]".
// Exptime is validated, but dropped: items never expire.
func parseSetFields(fields [][]byte) (m ItemMeta, noreply bool, err error) {
	var args [][]byte
	args, noreply, err = splitOptions(fields, 4)
	if err != nil {
		return
	}
	key, flags, exptime, size := args[0], args[1], args[2], args[3]
	if err = checkKey(key); err != nil {
		return
	}
	m.Key = string(key)
	if m.Flags, err = parseUint32(flags); err != nil {
		return
	}
	if _, err = parseUint32(exptime); err != nil {
		return
	}
	var bytesNum uint32
	if bytesNum, err = parseUint32(size); err != nil {
		return
	}
	m.Bytes = int(bytesNum)
	if m.Bytes > MaxItemSize {
		err = stackerr.Wrap(ErrTooLargeItem)
	}
	return
}

type reader struct {
	*bufio.Reader
}

func newReader(r io.Reader) reader {
	return reader{bufio.NewReaderSize(r, InBufferSize)}
}

// readCommand reads and splits next command line.
// Client errors are recoverable: connection can continue with next command.
func (r reader) readCommand() (cmd command, clientErr, err error) {
	// Only "\r\n" is accepted as line end, so ReadLine can't be used.
	line, err := r.ReadSlice('\n')
	switch {
	case err == bufio.ErrBufferFull:
		clientErr = stackerr.Wrap(ErrTooLargeCommand)
		err = r.discardCommand()
		return
	case err == io.EOF && len(line) != 0:
		err = stackerr.Wrap(io.ErrUnexpectedEOF)
		return
	case err == io.EOF:
		return
	case err != nil:
		err = stackerr.Wrap(err)
		return
	case len(line) > MaxCommandSize:
		clientErr = stackerr.Wrap(ErrTooLargeCommand)
		return
	case !bytes.HasSuffix(line, separatorBytes):
		clientErr = stackerr.Wrap(ErrInvalidLineSeparator)
		return
	}
	split := bytes.Fields(line[:len(line)-len(Separator)])
	if len(split) == 0 {
		clientErr = stackerr.Wrap(ErrEmptyCommand)
		return
	}
	cmd = command{name: split[0], fields: split[1:]}
	return
}

// readDataBlock reads size bytes and separator after them.
// Returned data is owned by caller.
func (r reader) readDataBlock(size int) (data []byte, clientErr, err error) {
	block := make([]byte, size+len(Separator))
	_, err = io.ReadFull(r, block)
	if err != nil {
		err = stackerr.Wrap(err)
		return
	}
	if !bytes.HasSuffix(block, separatorBytes) {
		clientErr = stackerr.Wrap(ErrInvalidLineSeparator)
		return
	}
	data = block[:size:size]
	return
}

// discardCommand skips input until next separator.
func (r reader) discardCommand() error {
	for {
		line, err := r.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
		case err != nil:
			return stackerr.Wrap(err)
		case bytes.HasSuffix(line, separatorBytes):
			return nil
		}
	}
}

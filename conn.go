package policycache

import (
	"bufio"
	"io"
	"strconv"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/skipor/policycache/internal/util"
	"github.com/skipor/policycache/log"
)

// handler processes command fields. Client error is reported to client,
// and connection continues. Other errors close connection.
type handler func(c *conn, fields [][]byte) (clientErr, err error)

var handlers = map[string]handler{
	GetCommand:   (*conn).get,
	GetsCommand:  (*conn).get,
	SetCommand:   (*conn).set,
	StatsCommand: (*conn).stats,
}

type conn struct {
	reader
	*bufio.Writer
	closer io.Closer
	*ConnMeta
	log log.Logger
}

func newConn(l log.Logger, m *ConnMeta, rwc io.ReadWriteCloser) *conn {
	return &conn{
		reader:   newReader(rwc),
		Writer:   bufio.NewWriterSize(rwc, OutBufferSize),
		closer:   rwc,
		ConnMeta: m,
		log:      l,
	}
}

func (c *conn) serve() {
	c.log.Debug("Serve connection.")
	defer func() {
		r := recover()
		if r != nil {
			c.serverError(stackerr.Newf("Panic: %v", r))
		}
		c.Close()
		c.log.Debug("Connection closed.")
		if r != nil {
			panic(r)
		}
	}()
	if err := c.loop(); err != nil {
		c.serverError(err)
	}
}

func (c *conn) Close() error {
	c.Flush()
	return c.closer.Close()
}

func (c *conn) loop() error {
	for {
		cmd, clientErr, err := c.readCommand()
		if err != nil {
			if util.Unwrap(err) == io.EOF {
				c.log.Debug("Client disconnected.")
				return nil
			}
			return err
		}
		if clientErr == nil {
			clientErr, err = c.handle(cmd)
		}
		if clientErr != nil && err == nil {
			err = c.sendClientError(clientErr)
		}
		if err != nil {
			return err
		}
	}
}

func (c *conn) handle(cmd command) (clientErr, err error) {
	name := string(cmd.name)
	c.log.Debugf("Command: %s.", name)
	defer c.commandTimer(name).UpdateSince(time.Now())
	h, ok := handlers[name]
	if !ok {
		c.log.Errorf("Unexpected command: %s", name)
		return nil, c.sendResponse(ErrorResponse)
	}
	return h(c, cmd.fields)
}

func (c *conn) get(keys [][]byte) (clientErr, err error) {
	if clientErr = checkKeys(keys); clientErr != nil {
		return
	}
	var found int
	for _, key := range keys {
		it, ok := c.Cache.Get(string(key))
		if !ok {
			continue
		}
		found++
		c.writeValue(it)
	}
	c.log.Debugf("Found %v of %v items.", found, len(keys))
	err = c.sendResponse(EndResponse)
	return
}

// writeValue writes "VALUE <key> <flags> <bytes>\r\n<data>\r\n".
// Write errors are sticky in bufio.Writer, and returned on flush.
func (c *conn) writeValue(it *Item) {
	buf := c.AvailableBuffer()
	buf = append(buf, ValueResponse...)
	buf = append(buf, ' ')
	buf = append(buf, it.Key...)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, uint64(it.Flags), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(it.Bytes), 10)
	buf = append(buf, Separator...)
	c.Write(buf)
	c.Write(it.Data)
	c.WriteString(Separator)
}

func (c *conn) set(fields [][]byte) (clientErr, err error) {
	meta, noreply, clientErr := parseSetFields(fields)
	switch {
	case clientErr == nil && meta.Bytes > c.MaxItemSize:
		clientErr = stackerr.Wrap(ErrTooLargeItem)
		fallthrough
	case util.Unwrap(clientErr) == ErrTooLargeItem:
		// Data block size is known, so it can be skipped fast.
		_, err = c.Discard(meta.Bytes + len(Separator))
		err = stackerr.Wrap(err)
		return
	case clientErr != nil:
		// Next line is expected to be data block.
		err = c.discardCommand()
		return
	}

	it := &Item{ItemMeta: meta}
	it.Data, clientErr, err = c.readDataBlock(meta.Bytes)
	if err != nil || clientErr != nil {
		return
	}
	c.Cache.Put(it.Key, it)
	if noreply {
		return
	}
	err = c.sendResponse(StoredResponse)
	return
}

func (c *conn) stats(fields [][]byte) (clientErr, err error) {
	if len(fields) != 0 {
		clientErr = stackerr.Wrap(ErrTooManyFields)
		return
	}
	for _, s := range c.collectStats() {
		c.WriteString(StatResponse + " " + s.name + " " + s.value + Separator)
	}
	err = c.sendResponse(EndResponse)
	return
}

func (c *conn) serverError(err error) {
	c.log.Error("Server error: ", err)
	err = util.Unwrap(err)
	if err == io.ErrUnexpectedEOF {
		return
	}
	c.sendResponse(ServerErrorResponse + " " + err.Error())
}

func (c *conn) sendClientError(err error) error {
	c.log.Error("Client error: ", err)
	return c.sendResponse(ClientErrorResponse + " " + util.Unwrap(err).Error())
}

func (c *conn) sendResponse(res string) error {
	c.WriteString(res)
	c.WriteString(Separator)
	return c.Flush()
}

func (c *conn) Flush() error {
	return stackerr.Wrap(c.Writer.Flush())
}

package transport_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocqls/rocqls/internal/transport"
)

type nopCloser struct{ io.ReadWriter }

func (nopCloser) Close() error { return nil }

func TestConnectWritesFramedNotification(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in, _ := io.Pipe()
	rwc := nopCloser{ReadWriter: struct {
		io.Reader
		io.Writer
	}{Reader: in, Writer: &out}}

	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := transport.Connect(ctx, transport.NewStream(rwc), handler)
	require.NoError(t, conn.Notify(ctx, "window/logMessage", map[string]string{"message": "hello"}))

	time.Sleep(50 * time.Millisecond)
	assert.Contains(t, out.String(), "Content-Length:")
	assert.Contains(t, out.String(), "window/logMessage")
}

func TestStdIOCombinesReaderAndWriter(t *testing.T) {
	t.Parallel()

	r := bytes.NewBufferString("input")
	var w bytes.Buffer
	s := transport.StdIO{Reader: r, Writer: &w}

	buf := make([]byte, 5)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "input", string(buf[:n]))

	_, err = s.Write([]byte("output"))
	require.NoError(t, err)
	assert.Equal(t, "output", w.String())
	assert.NoError(t, s.Close())
}

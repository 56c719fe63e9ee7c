package auditlog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"ibaudit/logformat"
	"ibaudit/testutils"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func newTestSink(t *testing.T, fs *mockFileSystem, index string) *IndexSink {
	cfg := testAuditConfig()
	cfg.Index = index
	sink, err := NewIndexSink(testutils.NewTestLogger(t), fs, cfg)
	if err != nil {
		t.Fatalf("Got unexpected error: %s", err)
	}
	return sink
}

func testIndexEntry(txID string) logformat.Entry {
	return logformat.Entry{
		Timestamp:  "2019-06-01T12:00:00.0000+0000",
		Hostname:   "example.com",
		RemoteAddr: "10.0.0.1",
		SiteID:     "site1",
		SensorID:   "sensor1",
		TxID:       txID,
		LogFile:    txID + ".log",
	}
}

func TestIndexSinkDisabled(t *testing.T) {
	assert := assert.New(t)

	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "")

	err := sink.Append(testIndexEntry("tx1"))

	assert.Nil(err)
	assert.False(sink.Enabled())
	assert.Equal(0, fs.openCalls)
}

func TestIndexSinkAbsolutePath(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "/var/log/auditindex")

	// Act
	err := sink.Append(testIndexEntry("tx1"))

	// Assert
	assert.Nil(err)
	content := fs.get("/var/log/auditindex")
	assert.True(strings.HasSuffix(content, "\n"))
	assert.Contains(content, "tx1")
	// No directory is created for an absolute index path.
	assert.Equal(0, fs.mkDirCalls)
}

func TestIndexSinkRelativePath(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "index")

	// Act
	err := sink.Append(testIndexEntry("tx1"))

	// Assert
	assert.Nil(err)
	assert.Contains(fs.dirs, "/audit")
	assert.Contains(fs.get("/audit/index"), "tx1")
}

func TestIndexSinkPipe(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "| logger -t audit")
	pipe := &mockFile{}
	var gotCommand string
	sink.startPipe = func(command string) (io.WriteCloser, error) {
		gotCommand = command
		return pipe, nil
	}

	// Act
	err := sink.Append(testIndexEntry("tx1"))

	// Assert
	assert.Nil(err)
	assert.Equal("logger -t audit", gotCommand)
	assert.Contains(pipe.String(), "tx1")
	assert.Equal(0, fs.openCalls)
}

func TestIndexSinkAppendMonotonicity(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "/index")

	// Act
	const n = 10
	for i := 0; i < n; i++ {
		err := sink.Append(testIndexEntry(fmt.Sprintf("tx%d", i)))
		assert.Nil(err)
	}

	// Assert
	content := fs.get("/index")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	assert.Equal(n, len(lines))
	for i, line := range lines {
		assert.Contains(line, fmt.Sprintf("tx%d", i))
	}
	// The handle is opened once and reused.
	assert.Equal(1, fs.openCalls)
}

func TestIndexSinkConcurrentAppends(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "/index")

	// Act
	const n = 50
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return sink.Append(testIndexEntry(fmt.Sprintf("tx%d", i)))
		})
	}
	err := g.Wait()

	// Assert
	assert.Nil(err)
	content := fs.get("/index")
	assert.Equal(n, strings.Count(content, "\n"))
}

func TestIndexSinkWriteFailureResetsHandle(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "/index")
	err := sink.Append(testIndexEntry("tx1"))
	assert.Nil(err)
	fs.files["/index"].failWrites = true

	// Act: the write failure is swallowed and the handle discarded.
	err = sink.Append(testIndexEntry("tx2"))

	// Assert
	assert.Nil(err)

	// A new handle is opened lazily on the next append. The mutex was
	// released on the failure path, so this does not deadlock.
	fs.files["/index"].failWrites = false
	err = sink.Append(testIndexEntry("tx3"))
	assert.Nil(err)
	assert.Contains(fs.get("/index"), "tx3")
	assert.Equal(2, fs.openCalls)
}

func TestIndexSinkOpenFailurePropagates(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	fs.openFailures = 1
	sink := newTestSink(t, fs, "/index")

	// Act
	err := sink.Append(testIndexEntry("tx1"))

	// Assert
	assert.NotNil(err)

	// The mutex was released on the error path; a later append succeeds.
	err = sink.Append(testIndexEntry("tx2"))
	assert.Nil(err)
	assert.Contains(fs.get("/index"), "tx2")
}

func TestIndexSinkPipeStartFailure(t *testing.T) {
	assert := assert.New(t)

	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "|missing-command")
	sink.startPipe = func(command string) (io.WriteCloser, error) {
		return nil, errors.New("mock pipe failure")
	}

	err := sink.Append(testIndexEntry("tx1"))

	assert.NotNil(err)
}

func TestIndexSinkClose(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	sink := newTestSink(t, fs, "/index")
	err := sink.Append(testIndexEntry("tx1"))
	assert.Nil(err)

	// Act
	err = sink.Close()

	// Assert
	assert.Nil(err)
	assert.True(fs.files["/index"].closed)

	// Closing an already-closed sink is a no-op.
	assert.Nil(sink.Close())
}

func TestIndexSinkBadFormatFailsConstruction(t *testing.T) {
	assert := assert.New(t)

	cfg := testAuditConfig()
	cfg.Index = "/index"
	cfg.IndexFormat = "%q"

	_, err := NewIndexSink(testutils.NewTestLogger(t), newMockFileSystem(), cfg)

	assert.NotNil(err)
}

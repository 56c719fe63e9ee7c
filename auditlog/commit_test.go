package auditlog

import (
	"testing"
	"time"

	"ibaudit/waf"

	"github.com/stretchr/testify/assert"
)

func testAuditConfig() *waf.AuditConfig {
	cfg := waf.DefaultAuditConfig()
	cfg.Mode = waf.AuditModeOn
	cfg.BaseDir = "/audit"
	return &cfg
}

func TestOpenContentFilePaths(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	cfg := testAuditConfig()
	tx := &waf.Transaction{ID: "tx1"}

	// Act
	c, err := openContentFile(fs, cfg, tx, nil)

	// Assert
	assert.Nil(err)
	assert.Equal("/audit/tx1.log", c.fullPath)
	assert.Equal("/audit/tx1.log.part", c.tempPath)
	assert.Equal("tx1.log", c.relPath)
	assert.Contains(fs.dirs, "/audit")
}

func TestOpenContentFileWithSiteAndSubdir(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	cfg := testAuditConfig()
	cfg.SubdirFormat = "%Y/%m/%d"
	tx := &waf.Transaction{
		ID:      "tx1",
		LogTime: time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	site := &waf.Site{ID: "site1"}

	// Act
	c, err := openContentFile(fs, cfg, tx, site)

	// Assert
	assert.Nil(err)
	assert.Equal("/audit/2019/06/01/tx1_site1.log", c.fullPath)
	assert.Equal("2019/06/01/tx1_site1.log", c.relPath)
	assert.Contains(fs.dirs, "/audit/2019/06/01")
}

func TestCommitRenamesTempToFinal(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	cfg := testAuditConfig()
	tx := &waf.Transaction{ID: "tx1"}
	c, err := openContentFile(fs, cfg, tx, nil)
	assert.Nil(err)
	_, err = c.file.Write([]byte("content"))
	assert.Nil(err)

	// The final path must not exist before commit.
	assert.False(fs.exists("/audit/tx1.log"))

	// Act
	err = c.commit()

	// Assert
	assert.Nil(err)
	assert.False(fs.exists("/audit/tx1.log.part"))
	assert.Equal("content", fs.get("/audit/tx1.log"))
}

func TestCommitRenameFailureLeavesTempFile(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := newMockFileSystem()
	cfg := testAuditConfig()
	tx := &waf.Transaction{ID: "tx1"}
	c, err := openContentFile(fs, cfg, tx, nil)
	assert.Nil(err)
	fs.failRename = true

	// Act
	err = c.commit()

	// Assert
	assert.NotNil(err)
	assert.True(fs.exists("/audit/tx1.log.part"))
	assert.False(fs.exists("/audit/tx1.log"))
}

func TestOpenContentFileMkDirFailure(t *testing.T) {
	assert := assert.New(t)

	fs := newMockFileSystem()
	fs.failMkDir = true
	cfg := testAuditConfig()

	_, err := openContentFile(fs, cfg, &waf.Transaction{ID: "tx1"}, nil)

	assert.NotNil(err)
	assert.Equal(0, fs.openCalls)
}

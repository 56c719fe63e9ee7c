package auditlog

import (
	"bytes"
	"errors"
	"os"
	"sync"
)

type mockFile struct {
	mu         sync.Mutex
	content    bytes.Buffer
	closed     bool
	failWrites bool
}

func (f *mockFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return 0, errors.New("mock write failure")
	}
	return f.content.Write(p)
}

func (f *mockFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *mockFile) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content.String()
}

type mockFileSystem struct {
	mu      sync.Mutex
	dirs    map[string]os.FileMode
	files   map[string]*mockFile
	renames map[string]string

	failMkDir    bool
	failOpen     bool
	failRename   bool
	openFailures int

	mkDirCalls int
	openCalls  int
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{
		dirs:    make(map[string]os.FileMode),
		files:   make(map[string]*mockFile),
		renames: make(map[string]string),
	}
}

func (fs *mockFileSystem) MkDirAll(path string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mkDirCalls++
	if fs.failMkDir {
		return errors.New("mock mkdir failure")
	}
	fs.dirs[path] = mode
	return nil
}

func (fs *mockFileSystem) OpenAppend(path string, mode os.FileMode) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.openCalls++
	if fs.failOpen {
		return nil, errors.New("mock open failure")
	}
	if fs.openFailures > 0 {
		fs.openFailures--
		return nil, errors.New("mock open failure")
	}
	f, ok := fs.files[path]
	if !ok {
		f = &mockFile{}
		fs.files[path] = f
	}
	return f, nil
}

func (fs *mockFileSystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failRename {
		return errors.New("mock rename failure")
	}
	f, ok := fs.files[oldPath]
	if !ok {
		return errors.New("mock rename of missing file")
	}
	delete(fs.files, oldPath)
	fs.files[newPath] = f
	fs.renames[oldPath] = newPath
	return nil
}

func (fs *mockFileSystem) get(path string) string {
	fs.mu.Lock()
	f, ok := fs.files[path]
	fs.mu.Unlock()
	if !ok {
		return ""
	}
	return f.String()
}

func (fs *mockFileSystem) exists(path string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.files[path]
	return ok
}

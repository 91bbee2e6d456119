package vfs

import (
	"io"
	"strings"
	"sync"

	"github.com/DavideArcolini/OS161-SHELL/errno"
)

// memFile is a regular in-memory file's backing store, shared by every
// Vnode reference to the same path (multiple opens of the same path
// see each other's writes, matching a real filesystem).
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *memFile) ReadAt(buf []byte, offset int64) (int, errno.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset < 0 {
		return 0, errno.EINVAL
	}
	if offset >= int64(len(f.data)) {
		return 0, errno.OK
	}
	n := copy(buf, f.data[offset:])
	return n, errno.OK
}

func (f *memFile) WriteAt(buf []byte, offset int64) (int, errno.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset < 0 {
		return 0, errno.EINVAL
	}
	end := offset + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[offset:end], buf)
	return n, errno.OK
}

func (f *memFile) Stat() (Stat, errno.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stat{Size: int64(len(f.data))}, errno.OK
}

func (f *memFile) IsDir() bool { return false }

// Close is a no-op: the backing store is kept alive by the filesystem's
// path map, not by any individual open-file object's reference.
func (f *memFile) Close() errno.Errno { return errno.OK }

// memDir is a directory vnode. It carries no content of its own; this
// module never implements readdir, only chdir's "is this a directory"
// check.
type memDir struct{}

func (d *memDir) ReadAt(buf []byte, offset int64) (int, errno.Errno)  { return 0, errno.EISDIR }
func (d *memDir) WriteAt(buf []byte, offset int64) (int, errno.Errno) { return 0, errno.EISDIR }
func (d *memDir) Stat() (Stat, errno.Errno)                           { return Stat{Dir: true}, errno.OK }
func (d *memDir) IsDir() bool                                        { return true }
func (d *memDir) Close() errno.Errno                                 { return errno.OK }

// console is the console device vnode, pre-populated into fd 0/1/2 by
// process creation per spec.md §4.3. Writes go to Out; reads drain In.
type console struct {
	mu  sync.Mutex
	out io.Writer
	in  io.Reader
}

func (c *console) ReadAt(buf []byte, offset int64) (int, errno.Errno) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in == nil {
		return 0, errno.OK
	}
	n, err := c.in.Read(buf)
	if err != nil && err != io.EOF {
		return n, errno.EIO
	}
	return n, errno.OK
}

func (c *console) WriteAt(buf []byte, offset int64) (int, errno.Errno) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return len(buf), errno.OK
	}
	n, err := c.out.Write(buf)
	if err != nil {
		return n, errno.EIO
	}
	return n, errno.OK
}

func (c *console) Stat() (Stat, errno.Errno) { return Stat{}, errno.OK }
func (c *console) IsDir() bool                { return false }

// Close is a no-op: the console device outlives any single open-file
// object that references it.
func (c *console) Close() errno.Errno { return errno.OK }

// NewConsole returns a console vnode backed by the given writer/reader.
// A nil writer discards output; a nil reader always reads as empty.
func NewConsole(out io.Writer, in io.Reader) Vnode {
	return &console{out: out, in: in}
}

// MemFS is an in-memory FileSystem: a flat path->file map plus the
// well-known "con:" console path, sufficient to exercise every SF
// dispatcher without a real disk.
type MemFS struct {
	mu      sync.Mutex
	files   map[string]*memFile
	dirs    map[string]bool
	console Vnode
}

// NewMemFS returns an empty in-memory filesystem with the root
// directory pre-created and "con:" wired to the given console vnode.
func NewMemFS(console Vnode) *MemFS {
	return &MemFS{
		files:   make(map[string]*memFile),
		dirs:    map[string]bool{"/": true},
		console: console,
	}
}

func (fs *MemFS) Open(path string, flags errno.Fdopt, mode uint32) (Vnode, errno.Errno) {
	if path == "con:" {
		return fs.console, errno.OK
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.dirs[path] {
		return &memDir{}, errno.OK
	}

	f, ok := fs.files[path]
	accmode := flags & errno.O_ACCMODE
	if !ok {
		if flags&errno.O_CREAT == 0 {
			return nil, errno.ENOENT
		}
		f = &memFile{}
		fs.files[path] = f
	} else if flags&errno.O_EXCL != 0 && flags&errno.O_CREAT != 0 {
		return nil, errno.EEXIST
	} else if flags&errno.O_TRUNC != 0 && accmode != errno.O_RDONLY {
		f.mu.Lock()
		f.data = nil
		f.mu.Unlock()
	}
	return f, errno.OK
}

func (fs *MemFS) Remove(path string) errno.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.dirs[path] {
		return errno.EISDIR
	}
	if _, ok := fs.files[path]; !ok {
		return errno.ENOENT
	}
	delete(fs.files, path)
	return errno.OK
}

// Mkdir registers path as a directory, so that chdir can enter it.
func (fs *MemFS) Mkdir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
}

// WriteFile seeds path with content, used by tests and cmd/oshell to
// preload files without going through open/write.
func (fs *MemFS) WriteFile(path string, content string) {
	fs.mu.Lock()
	f, ok := fs.files[path]
	if !ok {
		f = &memFile{}
		fs.files[path] = f
	}
	fs.mu.Unlock()
	f.mu.Lock()
	f.data = []byte(content)
	f.mu.Unlock()
}

// Canonicalize joins a possibly-relative path onto a base directory,
// the simplified stand-in for the teacher's bpath.Canonicalize.
func Canonicalize(base, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	if base == "/" {
		return "/" + path
	}
	return base + "/" + path
}

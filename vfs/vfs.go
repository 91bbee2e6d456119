// Package vfs stands in for the virtual filesystem spec.md §1 places
// out of scope (vfs_open, vfs_close, VOP_READ, VOP_WRITE, VOP_STAT,
// vfs_getcwd, vfs_setcurdir). It defines the Vnode/FileSystem
// interfaces the file syscall dispatchers (SF) consume, and a minimal
// in-memory filesystem so this module is self-contained and testable,
// grounded on the teacher's fd/fdops/stat package shapes (Fdops_i,
// Stat_t) and, for the separation of the vnode abstraction from its
// backing store, on jnwhiteh-minixfs's common/inode/fs split.
package vfs

import "github.com/DavideArcolini/OS161-SHELL/errno"

// Stat mirrors the fields the teacher's stat.Stat_t exposes that this
// module's callers need.
type Stat struct {
	Size int64
	Dir  bool
}

// Vnode is one filesystem object: a regular file, a directory or the
// console device. Every open-file object (F) in the system table holds exactly
// one Vnode reference.
type Vnode interface {
	// ReadAt/WriteAt take an explicit offset because the seek offset
	// lives in the open-file object (F), not the vnode — the same
	// vnode may be read at different offsets by unrelated open-file
	// objects. Returns the number of bytes actually transferred.
	ReadAt(buf []byte, offset int64) (int, errno.Errno)
	WriteAt(buf []byte, offset int64) (int, errno.Errno)
	Stat() (Stat, errno.Errno)
	// IsDir reports whether this vnode names a directory, checked by
	// chdir before installing it as a process's cwd.
	IsDir() bool
	// Close releases the vnode, the Go analogue of vfs_close, called
	// exactly once by the open-file table when an open-file object's
	// reference count reaches zero.
	Close() errno.Errno
}

// FileSystem is the vfs_open/vfs_close/remove surface this module
// consumes. vfs_getcwd/vfs_setcurdir are not part of this interface:
// per the teacher's Cwd_t, "current directory" is per-process state
// (a Vnode plus its canonical path string) that chdir mutates directly
// by calling Open again — there is nothing for the filesystem itself
// to track.
type FileSystem interface {
	// Open resolves path under flags/mode, the Go analogue of
	// vfs_open. flags carries the access-mode bits plus O_CREAT/
	// O_EXCL/O_TRUNC/O_APPEND.
	Open(path string, flags errno.Fdopt, mode uint32) (Vnode, errno.Errno)
	// Remove unlinks path, the Go analogue of the vfs remove used by
	// the remove() syscall.
	Remove(path string) errno.Errno
}

package syscall

import (
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/proc"
	"github.com/DavideArcolini/OS161-SHELL/ucopy"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

// Open implements the open() syscall (SF) of spec.md §4.5, grounded on
// the teacher's sys_open: resolve path against the caller's cwd, open
// the vnode through the filesystem, install it in the system open-file
// table, then claim the lowest free fd >= 3 in the caller's table.
func (k *Kernel) Open(p *proc.Proc, path string, flags errno.Fdopt, mode uint32) (int, errno.Errno) {
	if flags&errno.O_ACCMODE == 3 {
		return -1, errno.EINVAL
	}

	full := vfs.Canonicalize(p.Cwd.Path, path)
	vn, rc := k.FS.Open(full, flags, mode)
	if rc != errno.OK {
		return -1, rc
	}

	var offset int64
	if flags&errno.O_APPEND != 0 {
		st, rc := vn.Stat()
		if rc != errno.OK {
			return -1, rc
		}
		offset = st.Size
	}

	id, rc := k.Files.Open(p.Owner, vn, flags, offset)
	if rc != errno.OK {
		return -1, rc
	}

	fd, rc := p.Files.InsertFrom(3, id)
	if rc != errno.OK {
		k.Files.Decref(p.Owner, id)
		return -1, rc
	}
	return fd, errno.OK
}

// Close implements close(), grounded on the teacher's Sys_close:
// clear the caller's fd slot and decref the shared open-file object,
// releasing the vnode on the last reference.
func (k *Kernel) Close(p *proc.Proc, fd int) errno.Errno {
	id, ok := p.Files.Clear(fd)
	if !ok {
		return errno.EBADF
	}
	return k.Files.Decref(p.Owner, id)
}

// Read implements read(), grounded on the teacher's sys_read: resolve
// fd to the shared open-file object, serialise against concurrent
// sharers with its sleep-lock, read at the current offset into a
// kernel buffer, copyout that buffer to the caller's address space at
// uva (the teacher's Fops.Read takes a Userio_i that does the same
// copy inline), and advance the offset by the bytes transferred.
func (k *Kernel) Read(p *proc.Proc, fd int, uva uintptr, length int) (int, errno.Errno) {
	of, rc := k.lookupOpenFile(p, fd)
	if rc != errno.OK {
		return 0, rc
	}
	of.Acquire(p.Owner)
	defer of.Release(p.Owner)

	if of.Mode()&errno.O_ACCMODE == errno.O_WRONLY {
		return 0, errno.EBADF
	}

	off := of.Offset()
	kbuf := make([]byte, length)
	n, rc := of.Vnode().ReadAt(kbuf, off)
	if rc != errno.OK {
		return 0, rc
	}
	if rc := ucopy.Out(p.Aspace, uva, kbuf[:n]); rc != errno.OK {
		return 0, rc
	}
	of.SetOffset(off + int64(n))
	return n, errno.OK
}

// Write implements write(), the mirror of Read: copyin the caller's
// buffer from uva, then WriteAt it to the vnode at the current
// offset. Grounded on the teacher's sys_write.
func (k *Kernel) Write(p *proc.Proc, fd int, uva uintptr, length int) (int, errno.Errno) {
	of, rc := k.lookupOpenFile(p, fd)
	if rc != errno.OK {
		return 0, rc
	}
	of.Acquire(p.Owner)
	defer of.Release(p.Owner)

	if of.Mode()&errno.O_ACCMODE == errno.O_RDONLY {
		return 0, errno.EBADF
	}

	kbuf, rc := ucopy.In(p.Aspace, uva, length)
	if rc != errno.OK {
		return 0, rc
	}
	off := of.Offset()
	n, rc := of.Vnode().WriteAt(kbuf, off)
	if rc != errno.OK {
		return n, rc
	}
	of.SetOffset(off + int64(n))
	return n, errno.OK
}

func (k *Kernel) lookupOpenFile(p *proc.Proc, fd int) (*file.OpenFile, errno.Errno) {
	id, ok := p.Files.Get(fd)
	if !ok {
		return nil, errno.EBADF
	}
	of, ok := k.Files.Get(id)
	if !ok {
		return nil, errno.EBADF
	}
	return of, errno.OK
}

// Dup2 implements dup2(), grounded on the teacher's sys_dup2: close
// whatever currently occupies newfd, then point newfd at the same
// open-file object as oldfd, incrementing its reference count.
// Duplicating a descriptor onto itself is a no-op success.
func (k *Kernel) Dup2(p *proc.Proc, oldfd, newfd int) (int, errno.Errno) {
	if oldfd == newfd {
		if _, ok := p.Files.Get(oldfd); !ok {
			return -1, errno.EBADF
		}
		return newfd, errno.OK
	}

	id, ok := p.Files.Get(oldfd)
	if !ok {
		return -1, errno.EBADF
	}
	if newfd < 0 || newfd >= p.Files.Len() {
		return -1, errno.EBADF
	}

	if old, had := p.Files.Clear(newfd); had {
		k.Files.Decref(p.Owner, old)
	}
	k.Files.Incref(p.Owner, id)
	p.Files.Set(newfd, id)
	return newfd, errno.OK
}

// Lseek implements lseek(), grounded on the teacher's sys_lseek:
// reposition the shared open-file object's offset under its lock so
// concurrent sharers observe a consistent value.
func (k *Kernel) Lseek(p *proc.Proc, fd int, offset int64, whence int) (int64, errno.Errno) {
	of, rc := k.lookupOpenFile(p, fd)
	if rc != errno.OK {
		return -1, rc
	}

	of.Acquire(p.Owner)
	defer of.Release(p.Owner)

	var base int64
	switch whence {
	case errno.SEEK_SET:
		base = 0
	case errno.SEEK_CUR:
		base = of.Offset()
	case errno.SEEK_END:
		st, rc := of.Vnode().Stat()
		if rc != errno.OK {
			return -1, rc
		}
		base = st.Size
	default:
		return -1, errno.EINVAL
	}

	newOff := base + offset
	if newOff < 0 {
		return -1, errno.EINVAL
	}
	of.SetOffset(newOff)
	return newOff, errno.OK
}

// Chdir implements chdir(), grounded on the teacher's sys_chdir:
// resolve path, require it to be a directory, open a fresh vnode
// reference for it, and install that as the caller's cwd, replacing
// (not referencing-through-a-shared-fd) the old one.
func (k *Kernel) Chdir(p *proc.Proc, path string) errno.Errno {
	full := vfs.Canonicalize(p.Cwd.Path, path)
	vn, rc := k.FS.Open(full, errno.O_RDONLY, 0)
	if rc != errno.OK {
		return rc
	}
	if !vn.IsDir() {
		return errno.ENOTDIR
	}
	p.Cwd = proc.Cwd{Vnode: vn, Path: full}
	return errno.OK
}

// Getcwd implements getcwd(), grounded on the teacher's sys_getcwd:
// the canonical path is tracked directly on the process rather than
// reconstructed by walking the vnode tree, so this is a plain read.
func (k *Kernel) Getcwd(p *proc.Proc) (string, errno.Errno) {
	return p.Cwd.Path, errno.OK
}

// Remove implements remove(), supplementing spec.md's named SF set
// with the vfs-level unlink the original source exposes as
// sys_unlink; path resolution follows the same cwd-relative rule as
// every other path-taking syscall here.
func (k *Kernel) Remove(p *proc.Proc, path string) errno.Errno {
	full := vfs.Canonicalize(p.Cwd.Path, path)
	return k.FS.Remove(full)
}

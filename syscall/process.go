package syscall

import (
	"encoding/binary"

	"github.com/DavideArcolini/OS161-SHELL/aspace"
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/proc"
	"github.com/DavideArcolini/OS161-SHELL/trapframe"
	"github.com/DavideArcolini/OS161-SHELL/ucopy"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

// Getpid implements getpid(): a plain field read, grounded on the
// teacher's one-line sys_getpid.
func (k *Kernel) Getpid(p *proc.Proc) int {
	return p.Pid
}

// Fork implements fork() (SP), grounded on the teacher's sys_fork: the
// table does the heavy lifting (new pid, shared file table, copied
// address space); this dispatcher's job is just to hand back the
// child so the caller can decide how to resume it, since real
// scheduling is out of scope (spec.md §1's Non-goals).
func (k *Kernel) Fork(p *proc.Proc) (*proc.Proc, errno.Errno) {
	return k.Procs.Fork(k.Files, p)
}

// Execv implements execv() (SP), grounded on the teacher's
// sys_execv/sys_execv1: resolve path against the caller's cwd the same
// way Open/Chdir do (vfs.Canonicalize + k.FS.Open), so a missing
// executable fails ENOENT before anything about the process changes;
// validate argv against ARG_MAX; replace the caller's address space
// with a fresh one; lay argv out on its stack from high addresses
// downward, each string padded to a 4-byte boundary (mirroring the
// teacher's copy loop); activate the new address space; and point the
// trapframe at the simulated program entry with argc/argv in place.
// There is no ELF loader in scope, so path only renames the process;
// the "program" is whatever argv describes.
func (k *Kernel) Execv(p *proc.Proc, path string, argv []string) errno.Errno {
	if len(argv) > k.Limits.ArgMax {
		return errno.E2BIG
	}

	full := vfs.Canonicalize(p.Cwd.Path, path)
	vn, rc := k.FS.Open(full, errno.O_RDONLY, 0)
	if rc != errno.OK {
		return rc
	}
	const entry = 0 // stand-in program counter; no ELF loader in scope
	vn.Close()

	sp := aspace.Create()
	sp.DefineStack(0)

	ptrs := make([]uintptr, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		buf := append([]byte(argv[i]), 0)
		for len(buf)%4 != 0 {
			buf = append(buf, 0)
		}
		uva, err := sp.PushBytes(buf)
		if err != nil {
			sp.Destroy()
			return errno.E2BIG
		}
		ptrs[i] = uva
	}
	sp.AlignStack(4)

	argvBase, err := pushPointerArray(sp, ptrs)
	if err != nil {
		sp.Destroy()
		return errno.E2BIG
	}

	if p.Aspace != nil {
		p.Aspace.Destroy()
	}
	p.Aspace = sp
	sp.Activate()
	p.Name = path

	frame := &trapframe.Frame{}
	frame.EnterUser(entry, sp.StackPointer(), len(argv), argvBase)
	p.Frame = frame
	return errno.OK
}

// pushPointerArray writes ptrs onto sp's stack as a contiguous array
// of pointer-sized little-endian words and returns the array's base
// address, the simulated equivalent of execv's argv vector.
func pushPointerArray(sp *aspace.Space, ptrs []uintptr) (uintptr, error) {
	buf := make([]byte, 8*len(ptrs))
	for i, p := range ptrs {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(p))
	}
	return sp.PushBytes(buf)
}

// Waitpid implements waitpid(pid, *status, options -> pid) (SP),
// grounded on the teacher's sys_wait4: waiting on a pid that is not
// one of the caller's children is ECHILD, including the case of
// waiting on oneself; statusUva carries the exit status out through
// the caller's address space rather than as a return value, copied out
// via ucopy the same way Read/Write move data across the user/kernel
// boundary. Returns the reaped child's pid, not its status.
func (k *Kernel) Waitpid(p *proc.Proc, pid int, statusUva uintptr, options int) (int, errno.Errno) {
	if pid == p.Pid {
		return -1, errno.ECHILD
	}
	if options != 0 && options != errno.WNOHANG {
		return -1, errno.EINVAL
	}
	if statusUva == 0 || statusUva%4 != 0 {
		return -1, errno.EFAULT
	}
	if !p.HasChild(pid) {
		return -1, errno.ECHILD
	}
	if _, ok := k.Procs.Get(pid); !ok {
		return -1, errno.ESRCH
	}

	nohang := options&errno.WNOHANG != 0
	status, reaped, rc := k.Procs.Reap(k.Files, p, pid, nohang)
	if rc != errno.OK {
		return -1, rc
	}
	if !reaped {
		if rc := ucopy.Out(p.Aspace, statusUva, make([]byte, 4)); rc != errno.OK {
			return -1, rc
		}
		return 0, errno.OK
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(status))
	if rc := ucopy.Out(p.Aspace, statusUva, buf); rc != errno.OK {
		return -1, rc
	}
	return pid, errno.OK
}

// Exit implements _exit() (SP), grounded on the teacher's Sys_exit:
// close every open fd, record the exit status, orphan any surviving
// children, and wake whoever is parked in waitpid. p is left in the
// table as a zombie until its parent reaps it via Waitpid.
func (k *Kernel) Exit(p *proc.Proc, status int) {
	p.Files.CloseAll(p.Owner, k.Files)
	k.Procs.Exit(p, status)
}

// Package syscall dispatches the file syscalls (SF) and process
// syscalls (SP) of spec.md §4.5/§4.6 against a Kernel holding the
// system-wide open-file table (F), process table (P) and filesystem.
// Grounded on the teacher's kernel/syscall.go (sys_open, Sys_close,
// sys_read/sys_write, sys_dup2, sys_chdir/sys_getcwd, sys_fork,
// sys_execv/sys_execv1, sys_wait4, Sys_exit), restated against this
// module's FileID-indexed tables instead of direct Fd_t pointers.
package syscall

import (
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/kconfig"
	"github.com/DavideArcolini/OS161-SHELL/proc"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

// Kernel bundles the three shared tables (F, P, the filesystem) every
// dispatcher needs, the Go analogue of the global state the teacher's
// kernel/main.go wires up once at boot.
type Kernel struct {
	Files   *file.Table
	Procs   *proc.Table
	FS      vfs.FileSystem
	Console vfs.Vnode
	Limits  kconfig.Limits
}

// NewKernel boots a Kernel sized by limits, with fs as the backing
// filesystem and console wired to fd 0/1/2 of every created process.
func NewKernel(limits kconfig.Limits, fs vfs.FileSystem, console vfs.Vnode) *Kernel {
	return &Kernel{
		Files:   file.NewTable(limits.SystemOpenMax),
		Procs:   proc.NewTable(limits.ProcMax, limits.OpenMax),
		FS:      fs,
		Console: console,
		Limits:  limits,
	}
}

// Boot creates the first user process (the shell, by convention),
// parented to the kernel process, with cwd set to root. This mirrors
// the teacher's kernel/main.go exec() closure that forks the initial
// shell process off of proc0.
func (k *Kernel) Boot(name string) (*proc.Proc, errno.Errno) {
	root, rc := k.FS.Open("/", errno.O_RDONLY, 0)
	if rc != errno.OK {
		return nil, rc
	}
	cwd := proc.Cwd{Vnode: root, Path: "/"}
	p, rc := k.Procs.Create(k.Files, name, proc.KernelPid, k.Console, cwd)
	if rc != errno.OK {
		return nil, rc
	}
	k.Procs.Kernel().AddChild(p.Pid)
	return p, errno.OK
}

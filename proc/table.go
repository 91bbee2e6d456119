package proc

import (
	"sync"

	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

// Table is the system-wide process table of spec.md §4.4: a fixed
// array of PROC_MAX+1 slots indexed by pid, slot 0 reserved for the
// kernel process. Unlike the teacher, whose pid_cur counter only ever
// increases, this table recycles pids with a circular next-fit scan
// from last_pid+1 (spec.md §4.4's stated allocation strategy) — an
// explicit divergence recorded in DESIGN.md.
type Table struct {
	mu      sync.Mutex
	procs   []*Proc
	lastPid int
	openMax int
}

// NewTable allocates a process table with capacity procMax+1 slots
// (0..procMax, slot 0 reserved) and registers the kernel process in
// slot 0. openMax sizes every created process's file table.
func NewTable(procMax, openMax int) *Table {
	t := &Table{
		procs:   make([]*Proc, procMax+1),
		openMax: openMax,
	}
	kern := newProc(KernelPid, "kernel", openMax)
	kern.ParentPid = KernelPid
	t.procs[KernelPid] = kern
	return t
}

// Kernel returns the reserved slot-0 process.
func (t *Table) Kernel() *Proc {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.procs[KernelPid]
}

// Get returns the process at pid, or false if the slot is empty or
// out of range.
func (t *Table) Get(pid int) (*Proc, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid < 0 || pid >= len(t.procs) {
		return nil, false
	}
	p := t.procs[pid]
	return p, p != nil
}

// allocPid finds the next free slot after last_pid, wrapping past the
// end of the table back to 1 (slot 0 is never allocated), per spec.md
// §4.4's circular next-fit strategy. Must be called with t.mu held.
func (t *Table) allocPid() (int, errno.Errno) {
	span := len(t.procs) - 1 // allocatable pids are 1..span, slot 0 reserved
	start := t.lastPid % span
	for offset := 0; offset < span; offset++ {
		pid := (start+offset)%span + 1
		if t.procs[pid] == nil {
			t.lastPid = pid
			return pid, errno.OK
		}
	}
	return -1, errno.ENPROC
}

// Create allocates a pid, builds a new Proc named name with parentPid
// as its parent, pre-populates its console triple on fds 0,1,2, and
// registers it in the table. cwd seeds the child's starting directory
// (fork copies the parent's; execv leaves it as-is).
func (t *Table) Create(sysFiles *file.Table, name string, parentPid int, con vfs.Vnode, cwd Cwd) (*Proc, errno.Errno) {
	t.mu.Lock()
	pid, rc := t.allocPid()
	if rc != errno.OK {
		t.mu.Unlock()
		return nil, rc
	}
	p := newProc(pid, name, t.openMax)
	p.ParentPid = parentPid
	p.Cwd = cwd
	t.procs[pid] = p
	t.mu.Unlock()

	if rc := p.installConsole(sysFiles, con); rc != errno.OK {
		t.mu.Lock()
		t.procs[pid] = nil
		t.mu.Unlock()
		return nil, rc
	}
	return p, errno.OK
}

// Fork implements fork()'s table-level half, grounded on the
// teacher's sys_fork/Proc_new: allocate a new pid, clone the parent's
// file table (sharing, not copying, every open file per spec.md §4.3),
// copy its address space and register frame, and inherit its cwd.
// The caller is responsible for arranging the child's actual
// execution (spec.md's Non-goals put real scheduling out of scope).
func (t *Table) Fork(sysFiles *file.Table, parent *Proc) (*Proc, errno.Errno) {
	t.mu.Lock()
	pid, rc := t.allocPid()
	if rc != errno.OK {
		t.mu.Unlock()
		return nil, rc
	}
	child := newProc(pid, parent.Name, t.openMax)
	child.ParentPid = parent.Pid
	child.Cwd = parent.Cwd
	t.procs[pid] = child
	t.mu.Unlock()

	parent.Files.CloneInto(parent.Owner, sysFiles, child.Files)
	if parent.Aspace != nil {
		child.Aspace = parent.Aspace.Copy()
	}
	if parent.Frame != nil {
		child.Frame = parent.Frame.Copy()
	}
	parent.AddChild(pid)
	return child, errno.OK
}

// Destroy removes p from the table and tears down its resources. Per
// spec.md §4.4's precondition, p must have no running threads and
// must not be the kernel process; the caller (the exit path) is
// responsible for having already orphaned p's own children (via
// Reparent) before calling Destroy, so no live process is ever left
// with a dangling parent.
func (t *Table) Destroy(sysFiles *file.Table, p *Proc) errno.Errno {
	if p.Pid == KernelPid {
		return errno.EPERM
	}

	p.closeFiles(sysFiles)
	if p.Aspace != nil {
		p.Aspace.Destroy()
	}

	t.mu.Lock()
	t.procs[p.Pid] = nil
	t.mu.Unlock()
	return errno.OK
}

// Reparent walks every child of p and orphans it, the re-linking step
// of spec.md §4.4's proc_destroy: "for each child pid in the child
// list, if the child still exists in the table, set its parent_pid to
// -1". An orphan is not adopted by the kernel process or anyone else —
// it stays a zombie, reapable by nothing, until _exit(code)'s own
// "ambient sweeper" note (spec.md §4.6) applies, which is out of this
// module's scope.
func (t *Table) Reparent(p *Proc) {
	for _, cpid := range p.ChildPids() {
		if child, ok := t.Get(cpid); ok {
			child.ParentPid = -1
		}
	}
}

// Exit runs the full _exit sequence for p per spec.md §4.4/§4.6:
// record the exit status, orphan any surviving children, and wake
// whoever is parked in waitpid on p. p is NOT removed from the table
// here — it stays a zombie until its parent calls Reap.
func (t *Table) Exit(p *Proc, status int) {
	t.Reparent(p)
	p.DecThread()
	p.MarkExited(status)
}

// Reap waits for childPid to exit (or checks without blocking under
// WNOHANG), unlinks it from parent's child list, and destroys its
// table entry, implementing the combined wait4+reap step of spec.md
// §4.6. parent must actually be childPid's current parent, or ECHILD.
// reaped is false only for the WNOHANG case where the child has not
// exited yet; status is meaningless when reaped is false.
func (t *Table) Reap(sysFiles *file.Table, parent *Proc, childPid int, nohang bool) (status int, reaped bool, rc errno.Errno) {
	if !parent.HasChild(childPid) {
		return 0, false, errno.ECHILD
	}
	child, ok := t.Get(childPid)
	if !ok {
		return 0, false, errno.ECHILD
	}

	if nohang {
		st, exited := child.TryWaitExit()
		if !exited {
			return 0, false, errno.OK
		}
		status = st
	} else {
		status = child.WaitExit()
	}

	parent.RemoveChild(childPid)
	t.Destroy(sysFiles, child)
	return status, true, errno.OK
}

// Package proc implements the process table (P) of spec.md §4.4: process
// creation and teardown, parent/child bookkeeping, and the wait/exit
// rendezvous fork/execv/waitpid/_exit build on. Grounded on the
// teacher's common/proc.go (Proc_t, Proc_new, Proc_del, terminate) and
// proc/wait.go (Wait_t), generalized to this spec's fixed-capacity
// table and circular-reuse PID allocator (spec.md §4.4, §9).
package proc

import (
	"sync"

	"github.com/DavideArcolini/OS161-SHELL/aspace"
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/lock"
	"github.com/DavideArcolini/OS161-SHELL/trapframe"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

// KernelPid is the reserved PID of slot 0, never handed out to a user
// process. The teacher reserves pid 0 for the boot/init process the
// same way; spec.md §4.4 calls it "the kernel process" slot.
const KernelPid = 0

// Cwd pairs the current-directory vnode with its canonical path, the
// two pieces of state chdir/getcwd mutate together.
type Cwd struct {
	Vnode vfs.Vnode
	Path  string
}

// Proc is this module's analogue of the teacher's Proc_t: one process
// table entry. A single goroutine acts as "the" thread of the process
// (spec.md's Non-goals exclude multithreaded user processes), so Owner
// doubles as both the sleep-lock identity for this process's syscalls
// and the thread-count bookkeeping needed by exit/wait.
type Proc struct {
	Name      string
	Pid       int
	ParentPid int // KernelPid's parent is itself; -1 means "no parent" (reaped/orphaned)
	Children  []int

	Owner  lock.OwnerID
	Files  *FDTable
	Cwd    Cwd
	Aspace *aspace.Space
	Frame  *trapframe.Frame

	mu         sync.Mutex
	threads    int
	exited     bool
	exitStatus int
	waitCV     *lock.CondVar
}

// newProc allocates a zeroed process entry for pid, its file table
// pre-sized to openMax slots (all empty; the caller populates the
// console triple and any inherited fds).
func newProc(pid int, name string, openMax int) *Proc {
	p := &Proc{
		Name:      name,
		Pid:       pid,
		ParentPid: -1,
		Owner:     lock.NewOwner(),
		Files:     NewFDTable(openMax),
		threads:   1,
	}
	p.waitCV = lock.NewCondVar("proc-wait", &p.mu)
	return p
}

// AddChild records child's pid under p, called by fork after the
// child's table entry exists.
func (p *Proc) AddChild(childPid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Children = append(p.Children, childPid)
}

// RemoveChild unlinks childPid from p's child list, called once a
// waitpid on that child has reaped it.
func (p *Proc) RemoveChild(childPid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.Children {
		if c == childPid {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

// ChildPids returns a snapshot of p's current children.
func (p *Proc) ChildPids() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.Children))
	copy(out, p.Children)
	return out
}

// HasChild reports whether childPid is currently one of p's children.
func (p *Proc) HasChild(childPid int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.Children {
		if c == childPid {
			return true
		}
	}
	return false
}

// MarkExited records status and wakes anyone blocked in WaitExit,
// the rendezvous half of _exit per spec.md §4.6. It does not remove p
// from the table: the entry stays, a zombie, until a waitpid reaps it.
func (p *Proc) MarkExited(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exited = true
	p.exitStatus = status
	p.waitCV.Broadcast()
}

// WaitExit blocks until p has exited, then returns its exit status.
// Grounded on the teacher's Wait_t.Sleep: the waiter parks on the
// child's own condition variable rather than a separate rendezvous
// object, since spec.md's P holds one exit state per process, not a
// detachable wait channel.
func (p *Proc) WaitExit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.exited {
		p.waitCV.Wait()
	}
	return p.exitStatus
}

// TryWaitExit is WaitExit's non-blocking form for WNOHANG: it reports
// whether p has exited yet without parking the caller.
func (p *Proc) TryWaitExit() (status int, exited bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus, p.exited
}

// Exited reports whether MarkExited has been called.
func (p *Proc) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// IncThread/DecThread track the process's single simplified thread of
// control; DecThread reports the remaining count so the caller can
// decide whether the process is now fully stopped (spec.md §4.4's
// precondition for proc_destroy: thread count reaches zero).
func (p *Proc) IncThread() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads++
}

func (p *Proc) DecThread() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads--
	return p.threads
}

// closeFiles tears down p's file table through the ordinary decref
// path, per spec.md §4.3's exit-time teardown.
func (p *Proc) closeFiles(sysFiles *file.Table) {
	p.Files.CloseAll(p.Owner, sysFiles)
}

// installConsole pre-populates fds 0,1,2 with console handles opened
// against con, the process-creation step of spec.md §4.3.
func (p *Proc) installConsole(sysFiles *file.Table, con vfs.Vnode) errno.Errno {
	for fd := 0; fd < 3; fd++ {
		id, rc := sysFiles.Open(p.Owner, con, errno.O_RDWR, 0)
		if rc != errno.OK {
			return rc
		}
		p.Files.Set(fd, id)
	}
	return errno.OK
}

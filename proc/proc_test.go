package proc

import (
	"testing"

	"github.com/DavideArcolini/OS161-SHELL/aspace"
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

func newTestKernel(procMax, openMax int) (*Table, *file.Table, vfs.Vnode) {
	return NewTable(procMax, openMax), file.NewTable(10 * openMax), vfs.NewConsole(nil, nil)
}

func TestCreateReservesKernelSlot(t *testing.T) {
	pt, _, _ := newTestKernel(4, 8)
	k := pt.Kernel()
	if k.Pid != KernelPid {
		t.Fatalf("kernel process pid = %d, want %d", k.Pid, KernelPid)
	}
	if _, ok := pt.Get(KernelPid); !ok {
		t.Fatalf("kernel slot not populated")
	}
}

func TestCreateInstallsConsoleTriple(t *testing.T) {
	pt, ft, con := newTestKernel(4, 8)
	p, rc := pt.Create(ft, "init", KernelPid, con, Cwd{Path: "/"})
	if rc != errno.OK {
		t.Fatalf("create: %v", rc)
	}
	for fd := 0; fd < 3; fd++ {
		if _, ok := p.Files.Get(fd); !ok {
			t.Fatalf("fd %d not installed", fd)
		}
	}
	if _, ok := p.Files.Get(3); ok {
		t.Fatalf("fd 3 should be empty on a fresh process")
	}
}

func TestForkSharesFilesAndCopiesAspace(t *testing.T) {
	pt, ft, con := newTestKernel(8, 8)
	parent, rc := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})
	if rc != errno.OK {
		t.Fatalf("create: %v", rc)
	}
	parent.Aspace = aspace.Create()
	parent.Aspace.Write(0, []byte("before"))

	child, rc := pt.Fork(ft, parent)
	if rc != errno.OK {
		t.Fatalf("fork: %v", rc)
	}

	if !parent.HasChild(child.Pid) {
		t.Fatalf("parent does not list child %d", child.Pid)
	}

	stdinID, _ := parent.Files.Get(0)
	childStdinID, _ := child.Files.Get(0)
	if stdinID != childStdinID {
		t.Fatalf("child's stdin does not share the parent's open-file object")
	}
	if of, ok := ft.Get(stdinID); !ok || of.Refcount() != 2 {
		t.Fatalf("shared stdin refcount = %v, want 2", of.Refcount())
	}

	child.Aspace.Write(0, []byte("after!"))
	buf := make([]byte, 6)
	parent.Aspace.Read(0, buf)
	if string(buf) != "before" {
		t.Fatalf("fork isolation violated: parent sees %q", buf)
	}
}

func TestPidRecyclingAfterReap(t *testing.T) {
	pt, ft, con := newTestKernel(4, 8)
	parent, _ := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})

	var firstRound []int
	for i := 0; i < 3; i++ {
		child, rc := pt.Fork(ft, parent)
		if rc != errno.OK {
			t.Fatalf("fork %d: %v", i, rc)
		}
		firstRound = append(firstRound, child.Pid)
		pt.Exit(child, 0)
		if _, _, rc := pt.Reap(ft, parent, child.Pid, false); rc != errno.OK {
			t.Fatalf("reap %d: %v", i, rc)
		}
	}

	child, rc := pt.Fork(ft, parent)
	if rc != errno.OK {
		t.Fatalf("fork after reap: %v", rc)
	}
	found := false
	for _, pid := range firstRound {
		if pid == child.Pid {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a recycled pid from %v, got %d", firstRound, child.Pid)
	}
}

func TestWaitExitRendezvous(t *testing.T) {
	pt, ft, con := newTestKernel(4, 8)
	parent, _ := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})
	child, rc := pt.Fork(ft, parent)
	if rc != errno.OK {
		t.Fatalf("fork: %v", rc)
	}

	done := make(chan int)
	go func() {
		status, reaped, rc := pt.Reap(ft, parent, child.Pid, false)
		if rc != errno.OK {
			t.Errorf("reap: %v", rc)
		}
		if !reaped {
			t.Errorf("reap: expected child to have exited")
		}
		done <- status
	}()

	pt.Exit(child, 42)

	if status := <-done; status != 42 {
		t.Fatalf("status = %d, want 42", status)
	}
	if parent.HasChild(child.Pid) {
		t.Fatalf("child still listed as parent's child after reap")
	}
}

// Refcount invariant: a shared open-file object's refcount always
// equals the number of fd slots (across every process) currently
// naming it, incrementing on fork/dup2 and decrementing on close.
func TestRefcountInvariantAcrossForkAndDecref(t *testing.T) {
	pt, ft, con := newTestKernel(6, 8)
	parent, _ := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})

	id, rc := ft.Open(parent.Owner, con, errno.O_RDWR, 0)
	if rc != errno.OK {
		t.Fatalf("open: %v", rc)
	}
	fd, rc := parent.Files.InsertFrom(3, id)
	if rc != errno.OK {
		t.Fatalf("insert: %v", rc)
	}

	const n = 3
	children := make([]*Proc, 0, n)
	for i := 0; i < n; i++ {
		child, rc := pt.Fork(ft, parent)
		if rc != errno.OK {
			t.Fatalf("fork %d: %v", i, rc)
		}
		children = append(children, child)
	}

	of, ok := ft.Get(id)
	if !ok || of.Refcount() != n+1 {
		t.Fatalf("refcount after %d forks = %v, want %d", n, of.Refcount(), n+1)
	}

	childID, ok := children[0].Files.Get(fd)
	if !ok {
		t.Fatalf("child did not inherit fd %d", fd)
	}
	if rc := ft.Decref(children[0].Owner, childID); rc != errno.OK {
		t.Fatalf("decref: %v", rc)
	}
	if of.Refcount() != n {
		t.Fatalf("refcount after one decref = %v, want %d", of.Refcount(), n)
	}
}

// Scenario 5: forking past the process table's capacity without
// reaping any child fails ENPROC on the attempt that would overflow it.
func TestForkExhaustsProcessTableWithENPROC(t *testing.T) {
	pt, ft, con := newTestKernel(3, 8)
	parent, _ := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})

	for i := 0; i < 2; i++ {
		if _, rc := pt.Fork(ft, parent); rc != errno.OK {
			t.Fatalf("fork %d: %v", i, rc)
		}
	}

	if _, rc := pt.Fork(ft, parent); rc != errno.ENPROC {
		t.Fatalf("expected ENPROC once the table is full, got %v", rc)
	}
}

func TestReapNonChildIsECHILD(t *testing.T) {
	pt, ft, con := newTestKernel(4, 8)
	parent, _ := pt.Create(ft, "parent", KernelPid, con, Cwd{Path: "/"})
	other, _ := pt.Create(ft, "other", KernelPid, con, Cwd{Path: "/"})

	if _, _, rc := pt.Reap(ft, parent, other.Pid, false); rc != errno.ECHILD {
		t.Fatalf("expected ECHILD, got %v", rc)
	}
}

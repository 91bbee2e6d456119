// Package aspace stands in for the real address-space abstraction that
// spec.md §1 places out of scope ("create, destroy, copy, activate,
// define_stack"). The teacher's real implementation (vm.Vm_t /
// Vmregion_t, page tables, COW forking over physical pages) is a
// machine-dependent virtual-memory subsystem that has no business
// living in this module; what survives here is the *shape* of the
// interface the process-creation primitives (fork/exec) drive, plus a
// byte-addressable simulated memory region so this module's own tests
// can exercise copyin/copyout/argv-on-stack without a real MMU.
package aspace

import "sync"

// defaultSize is large enough to hold a simulated user stack plus a
// handful of argv strings for this module's tests and demo program.
const defaultSize = 64 * 1024

// Space is one process's simulated address space: a flat byte buffer
// standing in for the teacher's page-table-backed virtual memory, plus
// a stack pointer hint used by DefineStack/PushBytes.
type Space struct {
	mu    sync.Mutex
	mem   []byte
	sp    uintptr
	stack uintptr
	live  bool
}

// Create allocates a fresh, empty address space, the Go analogue of
// the teacher's as.Aspace_t{} / physmem.Pmap_new() pairing in
// Proc_new/sys_execv1.
func Create() *Space {
	return &Space{mem: make([]byte, defaultSize), live: true}
}

// Destroy releases the address space. On a destroyed Space, PushBytes
// panics and Read/Write report failure; the teacher likewise assumes a
// destroyed Vm_t is never touched again.
func (s *Space) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = false
	s.mem = nil
}

// Copy duplicates the address space for fork. The teacher does this
// with copy-on-write page table entries (Vm_fork); this module copies
// the simulated buffer outright since there is no MMU to share pages
// through — fork isolation (spec.md §8) still holds because writes to
// one copy are invisible to the other.
func (s *Space) Copy() *Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Space{
		mem:   make([]byte, len(s.mem)),
		sp:    s.sp,
		stack: s.stack,
		live:  true,
	}
	copy(c.mem, s.mem)
	return c
}

// Activate installs this address space as the one backing the running
// thread. Real kernels load the pmap's physical address into the page
// table base register here; this module has nothing to load, but keeps
// the call for symmetry with sys_execv1's "activate" step so the
// process-creation control flow matches spec.md §4.6 exactly.
func (s *Space) Activate() {}

// DefineStack places the initial user stack at the top of the simulated
// memory and returns its top-of-stack address, the Go analogue of
// as_define_stack in the teacher's ELF loader path. size is not used:
// the stack is not bounded and may grow down to address 0.
func (s *Space) DefineStack(size int) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := uintptr(len(s.mem))
	s.stack = top
	s.sp = top
	_ = size
	return top
}

// StackPointer returns the current top-of-stack address.
func (s *Space) StackPointer() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sp
}

// PushBytes copies data onto the stack, growing it downward and
// returning the new stack pointer, mirroring sys_execv1's "copy argv
// strings to the user stack from high addresses downward".
func (s *Space) PushBytes(data []byte) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		panic("aspace: push on destroyed address space")
	}
	n := uintptr(len(data))
	if s.sp < n {
		return 0, errOverflow
	}
	s.sp -= n
	copy(s.mem[s.sp:s.sp+n], data)
	return s.sp, nil
}

// AlignStack rounds the stack pointer down to the given alignment;
// execv calls it after laying out its 4-byte-padded argv strings.
func (s *Space) AlignStack(align uintptr) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp -= s.sp % align
	return s.sp
}

// Read copies length bytes starting at uva into dst, the simulated
// equivalent of a page-table walk + physical copy.
func (s *Space) Read(uva uintptr, dst []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live || uva >= uintptr(len(s.mem)) {
		return 0, false
	}
	end := uva + uintptr(len(dst))
	if end > uintptr(len(s.mem)) {
		end = uintptr(len(s.mem))
	}
	n := copy(dst, s.mem[uva:end])
	return n, true
}

// Write copies src into the address space starting at uva.
func (s *Space) Write(uva uintptr, src []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live || uva >= uintptr(len(s.mem)) {
		return 0, false
	}
	end := uva + uintptr(len(src))
	if end > uintptr(len(s.mem)) {
		end = uintptr(len(s.mem))
	}
	n := copy(s.mem[uva:end], src[:end-uva])
	return n, true
}

type overflowErr struct{}

func (overflowErr) Error() string { return "aspace: stack overflow" }

var errOverflow = overflowErr{}

// Package ucopy stands in for the user/kernel copy primitives spec.md
// §1 places out of scope (copyin, copyout, copyinstr), grounded on the
// teacher's vm.Vm_t.Userstr/Mkuserbuf signatures: a length-bounded copy
// from a user virtual address into a kernel buffer, or the reverse.
package ucopy

import (
	"github.com/DavideArcolini/OS161-SHELL/aspace"
	"github.com/DavideArcolini/OS161-SHELL/errno"
)

// In copies length bytes from the user address space at uva into a
// freshly allocated kernel buffer, the Go analogue of copyin(buf, uva, len).
func In(sp *aspace.Space, uva uintptr, length int) ([]byte, errno.Errno) {
	buf := make([]byte, length)
	n, ok := sp.Read(uva, buf)
	if !ok || n != length {
		return nil, errno.EFAULT
	}
	return buf, errno.OK
}

// Out copies buf from the kernel into the user address space at uva,
// the Go analogue of copyout(kbuf, uva, len).
func Out(sp *aspace.Space, uva uintptr, buf []byte) errno.Errno {
	n, ok := sp.Write(uva, buf)
	if !ok || n != len(buf) {
		return errno.EFAULT
	}
	return errno.OK
}

// InString copies a NUL-terminated string from user memory, bounded by
// max bytes, the Go analogue of copyinstr(uva, kbuf, max, &len).
func InString(sp *aspace.Space, uva uintptr, max int) (string, errno.Errno) {
	buf := make([]byte, max)
	n, ok := sp.Read(uva, buf)
	if !ok {
		return "", errno.EFAULT
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return string(buf[:i]), errno.OK
		}
	}
	return "", errno.EFAULT
}

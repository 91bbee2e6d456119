package proc

import (
	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/file"
	"github.com/DavideArcolini/OS161-SHELL/lock"
)

// FDTable is the per-process file table (T) of spec.md §4.3: a fixed
// vector of OPEN_MAX slots, each either empty or naming a system
// open-file table entry. Descriptors 0,1,2 are pre-populated with
// console handles during process creation; user-visible descriptors
// start at 3. Grounded on the teacher's Proc_t.Fds / Fd_insert /
// Fd_get / Fd_del / Fd_dup family (common/proc.go), generalized from a
// growable slice of *Fd_t to this spec's fixed vector of file.FileID.
type FDTable struct {
	slots []file.FileID
}

// NewFDTable allocates an empty file table of the given capacity
// (OPEN_MAX per spec.md §6), with every slot empty.
func NewFDTable(openMax int) *FDTable {
	t := &FDTable{slots: make([]file.FileID, openMax)}
	for i := range t.slots {
		t.slots[i] = file.NoFile
	}
	return t
}

// Get returns the FileID at fd, or false if fd is out of range or the
// slot is empty.
func (t *FDTable) Get(fd int) (file.FileID, bool) {
	if fd < 0 || fd >= len(t.slots) {
		return file.NoFile, false
	}
	if t.slots[fd] == file.NoFile {
		return file.NoFile, false
	}
	return t.slots[fd], true
}

// Set installs id at fd unconditionally (used to pre-populate the
// console slots 0,1,2 and by dup2 to overwrite an existing slot).
func (t *FDTable) Set(fd int, id file.FileID) {
	t.slots[fd] = id
}

// Clear empties fd and returns the FileID that had been there, or
// false if it was already empty.
func (t *FDTable) Clear(fd int) (file.FileID, bool) {
	if fd < 0 || fd >= len(t.slots) {
		return file.NoFile, false
	}
	id := t.slots[fd]
	t.slots[fd] = file.NoFile
	return id, id != file.NoFile
}

// InsertFrom claims the first empty slot at index >= start and
// installs id there, per spec.md §4.5's "claim the first free fd >= 3"
// for open(), or fork's requirement that the console triple stay put.
func (t *FDTable) InsertFrom(start int, id file.FileID) (int, errno.Errno) {
	for i := start; i < len(t.slots); i++ {
		if t.slots[i] == file.NoFile {
			t.slots[i] = id
			return i, errno.OK
		}
	}
	return -1, errno.EMFILE
}

// Len reports the table's fixed capacity (OPEN_MAX).
func (t *FDTable) Len() int { return len(t.slots) }

// CloneInto shares every non-empty slot of t with dst, incrementing
// each shared open-file's reference count under owner, the Go
// analogue of fork's "child inherits the whole table by incrementing
// each non-empty slot's refcount" (spec.md §4.3): files are shared,
// not copied, so a shared fd's offset advances for every sharer.
func (t *FDTable) CloneInto(owner lock.OwnerID, sysFiles *file.Table, dst *FDTable) {
	for i, id := range t.slots {
		if id == file.NoFile {
			continue
		}
		sysFiles.Incref(owner, id)
		dst.slots[i] = id
	}
}

// CloseAll closes every non-empty slot via the system table's decref
// path, the per-process teardown step of spec.md §4.3 ("during exit,
// every non-empty slot is closed via the ordinary close path").
func (t *FDTable) CloseAll(owner lock.OwnerID, sysFiles *file.Table) {
	for i, id := range t.slots {
		if id == file.NoFile {
			continue
		}
		sysFiles.Decref(owner, id)
		t.slots[i] = file.NoFile
	}
}

// Command oshell boots a Kernel, forks and execs a couple of
// processes against the in-memory filesystem, and waits on the child,
// exercising the fork/execv/wait/exit path end to end. Grounded on
// the teacher's kernel/main.go exec() closure: "fmt.Printf("start
// [...]"); p, ok := proc.Proc_new(...); sys_execv1(...)".
package main

import (
	"fmt"
	"os"

	"github.com/DavideArcolini/OS161-SHELL/errno"
	"github.com/DavideArcolini/OS161-SHELL/kconfig"
	"github.com/DavideArcolini/OS161-SHELL/proc"
	"github.com/DavideArcolini/OS161-SHELL/syscall"
	"github.com/DavideArcolini/OS161-SHELL/vfs"
)

func exec(k *syscall.Kernel, name string, argv []string) *proc.Proc {
	fmt.Printf("start [%v %v]\n", name, argv)
	p, rc := k.Boot(name)
	if rc != errno.OK {
		panic(fmt.Sprintf("boot failed: %v", rc))
	}
	if rc := k.Execv(p, name, argv); rc != errno.OK {
		panic(fmt.Sprintf("exec failed: %v", rc))
	}
	return p
}

func main() {
	limits := kconfig.Default()
	console := vfs.NewConsole(os.Stdout, os.Stdin)
	fs := vfs.NewMemFS(console)
	fs.WriteFile("/greeting.txt", "hello from oshell\n")
	fs.WriteFile("/bin/init", "")
	fs.WriteFile("/bin/cat", "")

	k := syscall.NewKernel(limits, fs, console)

	init := exec(k, "bin/init", []string{"bin/init"})

	child, rc := k.Fork(init)
	if rc != errno.OK {
		panic(fmt.Sprintf("fork failed: %v", rc))
	}
	if rc := k.Execv(child, "bin/cat", []string{"bin/cat", "/greeting.txt"}); rc != errno.OK {
		panic(fmt.Sprintf("exec failed: %v", rc))
	}

	fd, rc := k.Open(child, "/greeting.txt", errno.O_RDONLY, 0)
	if rc != errno.OK {
		panic(fmt.Sprintf("open failed: %v", rc))
	}
	uva, err := child.Aspace.PushBytes(make([]byte, 128))
	if err != nil {
		panic(err)
	}
	n, rc := k.Read(child, fd, uva, 128)
	if rc != errno.OK {
		panic(fmt.Sprintf("read failed: %v", rc))
	}
	k.Close(child, fd)

	got := make([]byte, n)
	child.Aspace.Read(uva, got)
	fmt.Printf("cat: %s", got)
	k.Exit(child, 0)

	statusUva, err := init.Aspace.PushBytes(make([]byte, 4))
	if err != nil {
		panic(err)
	}
	reapedPid, rc := k.Waitpid(init, child.Pid, statusUva, 0)
	if rc != errno.OK {
		panic(fmt.Sprintf("waitpid failed: %v", rc))
	}
	statusBuf := make([]byte, 4)
	init.Aspace.Read(statusUva, statusBuf)
	fmt.Printf("child %d exited with status %d\n", reapedPid, statusBuf[0])

	k.Exit(init, 0)
}

package libseccomp

import (
	"testing"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/zqzqsb/seccompgen/pkg/bpfvm"
	"github.com/zqzqsb/seccompgen/pkg/policy"
)

// futex 操作码与私有标志（linux/futex.h，x/sys/unix 未导出）
const (
	futexWait        = 0x0
	futexWake        = 0x1
	futexPrivateFlag = 0x80
)

// buildProgram 编译最小沙箱策略并解码导出的 BPF 程序
func buildProgram(t *testing.T) []bpf.Instruction {
	t.Helper()

	b := Builder{Policy: policy.Minimal()}
	filter, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer filter.Release()

	raw, err := ExportRaw(filter)
	if err != nil {
		t.Fatalf("ExportRaw() error = %v", err)
	}
	prog, err := bpfvm.Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return prog
}

// 对编译结果逐个模拟代表性的调用，检查处置是否符合策略语义
func TestMinimalPolicyDispositions(t *testing.T) {
	prog := buildProgram(t)

	tests := []struct {
		name       string
		nr         uint32
		args       [6]uint64
		wantAction uint32
		wantErrno  uint16 // 仅 errno 处置检查
	}{
		{
			name:       "undeclared sendto is killed",
			nr:         unix.SYS_SENDTO,
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "exit_group allowed",
			nr:         unix.SYS_EXIT_GROUP,
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "open read-only allowed",
			nr:         unix.SYS_OPEN,
			args:       [6]uint64{0, unix.O_RDONLY | unix.O_CLOEXEC},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "open with write intent is killed",
			nr:         unix.SYS_OPEN,
			args:       [6]uint64{0, unix.O_WRONLY | unix.O_CREAT},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "openat read-only allowed",
			nr:         unix.SYS_OPENAT,
			args:       [6]uint64{0, 0, unix.O_RDONLY | unix.O_DIRECTORY},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "openat read-write is killed",
			nr:         unix.SYS_OPENAT,
			args:       [6]uint64{0, 0, unix.O_RDWR},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "socket denied with EACCES",
			nr:         unix.SYS_SOCKET,
			wantAction: unix.SECCOMP_RET_ERRNO,
			wantErrno:  uint16(unix.EACCES),
		},
		{
			name:       "rlimit query of self allowed",
			nr:         unix.SYS_PRLIMIT64,
			args:       [6]uint64{0, unix.RLIMIT_NOFILE, 0, 0xffffe000},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "rlimit modification denied with EPERM",
			nr:         unix.SYS_PRLIMIT64,
			args:       [6]uint64{0, unix.RLIMIT_NOFILE, 0xffffe000, 0},
			wantAction: unix.SECCOMP_RET_ERRNO,
			wantErrno:  uint16(unix.EPERM),
		},
		{
			name:       "rlimit of another process is killed",
			nr:         unix.SYS_PRLIMIT64,
			args:       [6]uint64{1234, unix.RLIMIT_NOFILE, 0, 0},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "mmap read-write private allowed",
			nr:         unix.SYS_MMAP,
			args:       [6]uint64{0, 4096, unix.PROT_READ | unix.PROT_WRITE, unix.MAP_PRIVATE | unix.MAP_ANONYMOUS},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "mmap read-exec private allowed",
			nr:         unix.SYS_MMAP,
			args:       [6]uint64{0, 4096, unix.PROT_READ | unix.PROT_EXEC, unix.MAP_PRIVATE | unix.MAP_DENYWRITE},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "mmap write-exec is killed",
			nr:         unix.SYS_MMAP,
			args:       [6]uint64{0, 4096, unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC, unix.MAP_PRIVATE | unix.MAP_ANONYMOUS},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "mmap shared mapping is killed",
			nr:         unix.SYS_MMAP,
			args:       [6]uint64{0, 4096, unix.PROT_READ | unix.PROT_WRITE, unix.MAP_SHARED | unix.MAP_ANONYMOUS},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "mprotect to executable is killed",
			nr:         unix.SYS_MPROTECT,
			args:       [6]uint64{0, 4096, unix.PROT_READ | unix.PROT_EXEC},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "futex private wake allowed",
			nr:         unix.SYS_FUTEX,
			args:       [6]uint64{0, futexWake | futexPrivateFlag},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "futex wait is killed",
			nr:         unix.SYS_FUTEX,
			args:       [6]uint64{0, futexWait},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name: "clone with thread flags allowed",
			nr:   unix.SYS_CLONE,
			args: [6]uint64{unix.CLONE_VM | unix.CLONE_FS | unix.CLONE_FILES |
				unix.CLONE_SYSVSEM | unix.CLONE_SIGHAND | unix.CLONE_THREAD |
				unix.CLONE_SETTLS | unix.CLONE_PARENT_SETTID | unix.CLONE_CHILD_CLEARTID},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "clone as fork is killed",
			nr:         unix.SYS_CLONE,
			args:       [6]uint64{uint64(unix.SIGCHLD)},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "ioctl tcgetpgrp on stdin allowed",
			nr:         unix.SYS_IOCTL,
			args:       [6]uint64{0, unix.TIOCGPGRP},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "ioctl on other descriptor is killed",
			nr:         unix.SYS_IOCTL,
			args:       [6]uint64{1, unix.TIOCGPGRP},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "fcntl get flags allowed",
			nr:         unix.SYS_FCNTL,
			args:       [6]uint64{0, unix.F_GETFL},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "fcntl set flags is killed",
			nr:         unix.SYS_FCNTL,
			args:       [6]uint64{0, unix.F_SETFL},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "prctl set name allowed",
			nr:         unix.SYS_PRCTL,
			args:       [6]uint64{unix.PR_SET_NAME},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "prctl set dumpable is killed",
			nr:         unix.SYS_PRCTL,
			args:       [6]uint64{unix.PR_SET_DUMPABLE},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
		{
			name:       "clock_gettime realtime allowed",
			nr:         unix.SYS_CLOCK_GETTIME,
			args:       [6]uint64{unix.CLOCK_REALTIME},
			wantAction: unix.SECCOMP_RET_ALLOW,
		},
		{
			name:       "clock_gettime monotonic is killed",
			nr:         unix.SYS_CLOCK_GETTIME,
			args:       [6]uint64{unix.CLOCK_MONOTONIC},
			wantAction: unix.SECCOMP_RET_KILL_PROCESS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret, err := bpfvm.Run(prog, &bpfvm.SyscallData{
				NR:   tt.nr,
				Arch: unix.AUDIT_ARCH_X86_64,
				Args: tt.args,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := bpfvm.Action(ret); got != tt.wantAction {
				t.Fatalf("action = %#x, want %#x", got, tt.wantAction)
			}
			if tt.wantErrno != 0 {
				if got := bpfvm.Data(ret); got != tt.wantErrno {
					t.Errorf("errno = %d, want %d", got, tt.wantErrno)
				}
			}
		})
	}
}

// 调用方架构不被策略识别时直接终止
func TestMinimalPolicyBadArch(t *testing.T) {
	prog := buildProgram(t)

	ret, err := bpfvm.Run(prog, &bpfvm.SyscallData{
		NR:   unix.SYS_READ,
		Arch: unix.AUDIT_ARCH_I386,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := bpfvm.Action(ret); got != unix.SECCOMP_RET_KILL_PROCESS {
		t.Errorf("action = %#x, want kill process", got)
	}
}

// 名字和调用号的互转建立在当前架构的映射表上
func TestSyscallNameMapping(t *testing.T) {
	name, err := ToSyscallName(uint(unix.SYS_READ))
	if err != nil {
		t.Fatalf("ToSyscallName() error = %v", err)
	}
	if name != "read" {
		t.Errorf("ToSyscallName(SYS_READ) = %q, want %q", name, "read")
	}

	nr, err := SyscallNumber("read")
	if err != nil {
		t.Fatalf("SyscallNumber() error = %v", err)
	}
	if nr != uint(unix.SYS_READ) {
		t.Errorf("SyscallNumber(read) = %d, want %d", nr, unix.SYS_READ)
	}

	if _, err := SyscallNumber("definitely_not_a_syscall"); err == nil {
		t.Error("SyscallNumber() error = nil, want error")
	}
}

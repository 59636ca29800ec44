package policy

import (
	"golang.org/x/sys/unix"

	"github.com/zqzqsb/seccompgen/pkg/seccomp"
)

// 打开文件允许的标志位：只读、随执行关闭、仅路径、仅目录。
// 任何写意图标志（O_WRONLY/O_RDWR/O_CREAT 等）都不在其中。
const readOnlyOpenFlags = unix.O_RDONLY | unix.O_CLOEXEC | unix.O_PATH | unix.O_DIRECTORY

// 标准输入的文件描述符
const stdinFD = 0

// futex 操作码与私有标志（linux/futex.h，x/sys/unix 未导出）
const (
	futexWake        = 0x1
	futexPrivateFlag = 0x80
)

// 创建线程所需的最小 clone 标志集合。
// 超出这个集合的请求（比如派生新的进程映像）不会被放行。
const threadCloneFlags = unix.CLONE_VM | unix.CLONE_FS | unix.CLONE_FILES |
	unix.CLONE_SYSVSEM | unix.CLONE_SIGHAND | unix.CLONE_THREAD |
	unix.CLONE_SETTLS | unix.CLONE_PARENT_SETTID | unix.CLONE_CHILD_CLEARTID

// Minimal 返回运行不可信代码的最小沙箱策略。
//
// 默认动作是终止进程：任何没有声明的系统调用都不放行。
// 规则表固定，顺序即匹配顺序；同一调用的多条规则首次命中生效。
func Minimal() *Policy {
	p := &Policy{
		DefaultAction: seccomp.ActionKillProcess,
		// 未识别的调用方架构同样直接终止
		BadArchAction: seccomp.ActionKillProcess,
		NoNewPrivs:    true,
		TSync:         true,
	}

	// 允许干净退出
	p.Allow("exit")
	p.Allow("exit_group")

	// 允许 mmap 及相关调用，动态装载、读取转储文件和创建线程栈
	// 都依赖它们。不允许页面同时可写且可执行。
	p.Allow("mmap",
		ArgBitsWithin32(2, unix.PROT_NONE|unix.PROT_READ|unix.PROT_WRITE),
		// 只支持已知安全的映射标志。MAP_DENYWRITE 已被内核忽略，
		// 但一些版本的动态装载器仍然会传它。线程栈分配也在此放行。
		ArgBitsWithin32(3, unix.MAP_PRIVATE|unix.MAP_FILE|unix.MAP_ANONYMOUS|
			unix.MAP_FIXED|unix.MAP_DENYWRITE|unix.MAP_STACK|unix.MAP_NORESERVE))
	p.Allow("mmap",
		ArgBitsWithin32(2, unix.PROT_NONE|unix.PROT_READ|unix.PROT_EXEC),
		ArgBitsWithin32(3, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|
			unix.MAP_FIXED|unix.MAP_DENYWRITE))
	p.Allow("munmap")
	// 不允许把页面改成可执行
	p.Allow("mprotect",
		ArgBitsWithin32(2, unix.PROT_NONE|unix.PROT_READ|unix.PROT_WRITE))

	// futex 只放行私有唤醒
	p.Allow("futex",
		ArgEquals(1, futexWake|futexPrivateFlag))

	// 基本的堆内存管理
	p.Allow("brk")

	// 一些无害的状态查询
	p.Allow("uname")
	p.Allow("getuid")
	p.Allow("geteuid")
	p.Allow("getpid")
	p.Allow("getpgrp")

	// 允许对已打开文件描述符的操作。
	// 描述符本身就是一种能力，操作它不会引入新的访问权限。
	p.Allow("read")
	p.Allow("write")
	p.Allow("close")
	p.Allow("lseek")
	p.Allow("dup")
	p.Allow("dup2")
	p.Allow("fstat")

	// 允许文件系统上的只读查询。
	// 如有必要应该再用挂载命名空间进一步收紧。
	p.Allow("access")
	p.Allow("faccessat")
	p.Allow("stat")
	p.Allow("stat64")
	p.Allow("lstat")
	p.Allow("lstat64")
	p.Allow("fstatat64")
	p.Allow("newfstatat")
	p.Allow("readlink")
	p.Allow("readlinkat")
	p.Allow("getcwd")

	// 允许打开文件，前提是不带任何写意图标志
	p.Allow("open",
		ArgBitsWithin32(1, readOnlyOpenFlags))
	p.Allow("openat",
		ArgBitsWithin32(2, readOnlyOpenFlags))

	// 只允许对标准输入查询前台进程组（tcgetpgrp）
	p.Allow("ioctl",
		ArgEquals(0, stdinFD),
		ArgEquals(1, unix.TIOCGPGRP))

	// 允许读取（但不允许设置）描述符标志
	p.Allow("fcntl",
		ArgEquals(1, unix.F_GETFL))
	p.Allow("fcntl64",
		ArgEquals(1, unix.F_GETFL))

	// 允许从内核读取随机数
	p.Allow("getrandom")

	// 改 umask 没有危害
	p.Allow("umask")

	// 允许创建管道
	p.Allow("pipe")
	p.Allow("pipe2")

	// 允许读取（但不允许修改）资源限制。
	// prlimit64 只放行查询自身：pid 为 0 且不携带新限制。
	p.Allow("getrlimit")
	p.Allow("prlimit64",
		ArgEquals(0, 0), // pid == 0，当前进程
		ArgEquals(2, 0)) // new_limit == NULL
	// 修改自身资源限制：返回 EPERM 而不是终止进程，
	// 让调用方可以处理失败。
	p.Errno(uint16(unix.EPERM), "prlimit64",
		ArgEquals(0, 0),
		ArgNotEquals(2, 0))

	// 安装信号处理器是无害的
	p.Allow("sigaction")
	p.Allow("rt_sigaction")
	p.Allow("sigprocmask")
	p.Allow("rt_sigprocmask")

	// 允许读取当前时间
	p.Allow("clock_gettime",
		ArgEquals(0, unix.CLOCK_REALTIME))
	p.Allow("time")
	p.Allow("gettimeofday")

	// 允许定时器
	p.Allow("timer_create")
	p.Allow("timerfd_create")

	// 允许创建线程：clone 标志必须是共享地址空间线程所需的最小集合
	p.Allow("clone",
		ArgBitsWithin64(0, threadCloneFlags))
	p.Allow("sigaltstack")
	p.Allow("set_robust_list")

	// prctl 只放行为新线程设置名字
	p.Allow("prctl",
		ArgEquals(0, unix.PR_SET_NAME))

	// 事件循环相关：事件描述符、等待子进程、轮询
	p.Allow("eventfd")
	p.Allow("eventfd2")
	p.Allow("wait4")
	p.Allow("poll")

	// 不允许创建套接字（放开网络访问过于危险），
	// 但返回 EACCES 而不是终止进程。
	p.Errno(uint16(unix.EACCES), "socket")

	return p
}

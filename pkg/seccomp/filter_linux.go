// Package seccomp 提供了 seccomp 过滤器策略与程序的公共类型定义。
// seccomp (secure computing mode) 是 Linux 内核提供的安全机制，
// 用于限制进程可以使用的系统调用。
package seccomp

import (
	"syscall"
	"unsafe"
)

// Filter 是内核加载格式（sock_filter 数组）的 seccomp 过滤器程序字节。
// 每 8 个字节对应一条 BPF 指令，包含：
// - Code: 操作码，定义指令的行为（加载、运算、跳转、返回）
// - Jt/Jf: 条件跳转的目标（true/false）
// - K: 立即数值或 seccomp_data 内的偏移
type Filter []byte

// InstructionCount 返回过滤器程序的指令数量
func (f Filter) InstructionCount() int {
	return len(f) / 8
}

// SockFprog 将 Filter 转换为内核可以理解的 SockFprog 格式。
// 这个结构在调用 prctl(PR_SET_SECCOMP, SECCOMP_MODE_FILTER, prog) 或
// seccomp(2) 安装过滤器时使用。
//
// 空程序没有可取地址的指令，返回 nil。
//
// 注意：Filter 指针直接指向底层数组，调用内核期间 f 不能被修改或回收。
func (f Filter) SockFprog() *syscall.SockFprog {
	if len(f) == 0 {
		return nil
	}
	return &syscall.SockFprog{
		Len:    uint16(len(f) / 8),
		Filter: (*syscall.SockFilter)(unsafe.Pointer(&f[0])),
	}
}

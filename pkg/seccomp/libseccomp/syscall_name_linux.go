package libseccomp

import (
	"fmt"

	"github.com/elastic/go-seccomp-bpf/arch"
)

// arch.GetInfo("") 返回当前架构（如 x86_64、arm64）的系统调用映射表
var info, errInfo = arch.GetInfo("")

// ToSyscallName 把当前架构的系统调用号转换为名字，
// 用于在诊断和测试里标注编译出的规则。
func ToSyscallName(sysno uint) (string, error) {
	if errInfo != nil {
		return "", errInfo
	}
	n, ok := info.SyscallNumbers[int(sysno)]
	if !ok {
		return "", fmt.Errorf("syscall no %d does not exist on this architecture", sysno)
	}
	return n, nil
}

// SyscallNumber 把系统调用名转换为当前架构的调用号。
// 名字在当前架构上不存在时返回错误（不会像 libseccomp 那样
// 返回跨架构的伪调用号）。
func SyscallNumber(name string) (uint, error) {
	if errInfo != nil {
		return 0, errInfo
	}
	for nr, n := range info.SyscallNumbers {
		if n == name {
			return uint(nr), nil
		}
	}
	return 0, fmt.Errorf("syscall %q does not exist on this architecture", name)
}

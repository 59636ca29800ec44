package policy

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// VerifyTarget 校验策略对目标 ABI 的假设。
//
// 规则表里的谓词值按 64 位指针、32 位整型参数、全零空指针编码，
// 掩码谓词又要求一组标志位非零才有排除效果。任何一条不成立都
// 说明目标不是策略支持的架构，必须在声明规则之前失败。
func VerifyTarget() error {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		return fmt.Errorf("unsupported target: pointer width is %d bytes, want 8",
			unsafe.Sizeof(uintptr(0)))
	}
	if uintptr(unsafe.Pointer(nil)) != 0 {
		return fmt.Errorf("unsupported target: nil pointer is not represented as zero")
	}

	// 这些标志位为零会让对应的掩码谓词失去排除效果
	nonzero := []struct {
		name  string
		value uint64
	}{
		{"O_WRONLY", unix.O_WRONLY},
		{"O_RDWR", unix.O_RDWR},
		{"O_CREAT", unix.O_CREAT},
		{"MAP_PRIVATE", unix.MAP_PRIVATE},
		{"MAP_SHARED", unix.MAP_SHARED},
	}
	for _, c := range nonzero {
		if c.value == 0 {
			return fmt.Errorf("unsupported target: %s is zero", c.name)
		}
	}
	return nil
}

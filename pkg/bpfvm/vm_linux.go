package bpfvm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// SyscallData 对应内核传给过滤器求值的 seccomp_data 结构
type SyscallData struct {
	NR   uint32    // 系统调用号
	Arch uint32    // 调用方架构的 AUDIT_ARCH_* 值
	IP   uint64    // 触发调用的指令指针
	Args [6]uint64 // 六个原始参数
}

// seccomp_data 的序列化长度：nr + arch + ip + 6 个参数
const dataSize = 4 + 4 + 8 + 6*8

// bytes 按目标的小端序布局序列化 seccomp_data
func (d *SyscallData) bytes() []byte {
	buf := make([]byte, dataSize)
	binary.LittleEndian.PutUint32(buf[0:], d.NR)
	binary.LittleEndian.PutUint32(buf[4:], d.Arch)
	binary.LittleEndian.PutUint64(buf[8:], d.IP)
	for i, a := range d.Args {
		binary.LittleEndian.PutUint64(buf[16+8*i:], a)
	}
	return buf
}

// Action 取返回值的动作部分
func Action(ret uint32) uint32 {
	return ret & unix.SECCOMP_RET_ACTION_FULL
}

// Data 取返回值携带的数据部分（errno 动作的错误码）
func Data(ret uint32) uint16 {
	return uint16(ret & unix.SECCOMP_RET_DATA)
}

// Run 在 data 上执行过滤器程序，返回 32 位过滤器返回值。
//
// seccomp 程序只会对 seccomp_data 做 4 字节对齐的字加载；
// 其它宽度的加载、越界访问、不支持的指令和没有以返回指令
// 结束的执行流都按错误处理。
func Run(insts []bpf.Instruction, data *SyscallData) (uint32, error) {
	buf := data.bytes()
	var regA, regX uint32
	var scratch [16]uint32

	for pc := 0; pc < len(insts); pc++ {
		switch inst := insts[pc].(type) {
		case bpf.LoadAbsolute:
			if inst.Size != 4 {
				return 0, fmt.Errorf("pc %d: %d-byte load not valid for seccomp", pc, inst.Size)
			}
			if inst.Off > dataSize-4 {
				return 0, fmt.Errorf("pc %d: load offset %d out of range", pc, inst.Off)
			}
			// 内核的程序检查器还要求加载偏移按字对齐
			if inst.Off%4 != 0 {
				return 0, fmt.Errorf("pc %d: load offset %d is not word aligned", pc, inst.Off)
			}
			regA = binary.LittleEndian.Uint32(buf[inst.Off:])

		case bpf.LoadConstant:
			if inst.Dst == bpf.RegX {
				regX = inst.Val
			} else {
				regA = inst.Val
			}

		case bpf.LoadScratch:
			if inst.N < 0 || inst.N >= len(scratch) {
				return 0, fmt.Errorf("pc %d: scratch slot %d out of range", pc, inst.N)
			}
			if inst.Dst == bpf.RegX {
				regX = scratch[inst.N]
			} else {
				regA = scratch[inst.N]
			}

		case bpf.StoreScratch:
			if inst.N < 0 || inst.N >= len(scratch) {
				return 0, fmt.Errorf("pc %d: scratch slot %d out of range", pc, inst.N)
			}
			if inst.Src == bpf.RegX {
				scratch[inst.N] = regX
			} else {
				scratch[inst.N] = regA
			}

		case bpf.TAX:
			regX = regA

		case bpf.TXA:
			regA = regX

		case bpf.NegateA:
			regA = -regA

		case bpf.ALUOpConstant:
			v, err := alu(inst.Op, regA, inst.Val)
			if err != nil {
				return 0, fmt.Errorf("pc %d: %w", pc, err)
			}
			regA = v

		case bpf.ALUOpX:
			v, err := alu(inst.Op, regA, regX)
			if err != nil {
				return 0, fmt.Errorf("pc %d: %w", pc, err)
			}
			regA = v

		case bpf.Jump:
			pc += int(inst.Skip)

		case bpf.JumpIf:
			if conditionHolds(inst.Cond, regA, inst.Val) {
				pc += int(inst.SkipTrue)
			} else {
				pc += int(inst.SkipFalse)
			}

		case bpf.JumpIfX:
			if conditionHolds(inst.Cond, regA, regX) {
				pc += int(inst.SkipTrue)
			} else {
				pc += int(inst.SkipFalse)
			}

		case bpf.RetA:
			return regA, nil

		case bpf.RetConstant:
			return inst.Val, nil

		default:
			return 0, fmt.Errorf("pc %d: unsupported instruction %v", pc, inst)
		}
	}
	return 0, errors.New("program finished without returning")
}

func conditionHolds(cond bpf.JumpTest, a, v uint32) bool {
	switch cond {
	case bpf.JumpEqual:
		return a == v
	case bpf.JumpNotEqual:
		return a != v
	case bpf.JumpGreaterThan:
		return a > v
	case bpf.JumpLessThan:
		return a < v
	case bpf.JumpGreaterOrEqual:
		return a >= v
	case bpf.JumpLessOrEqual:
		return a <= v
	case bpf.JumpBitsSet:
		return a&v != 0
	case bpf.JumpBitsNotSet:
		return a&v == 0
	}
	return false
}

func alu(op bpf.ALUOp, a, v uint32) (uint32, error) {
	switch op {
	case bpf.ALUOpAdd:
		return a + v, nil
	case bpf.ALUOpSub:
		return a - v, nil
	case bpf.ALUOpMul:
		return a * v, nil
	case bpf.ALUOpDiv:
		if v == 0 {
			return 0, errors.New("division by zero")
		}
		return a / v, nil
	case bpf.ALUOpMod:
		if v == 0 {
			return 0, errors.New("modulo by zero")
		}
		return a % v, nil
	case bpf.ALUOpAnd:
		return a & v, nil
	case bpf.ALUOpOr:
		return a | v, nil
	case bpf.ALUOpXor:
		return a ^ v, nil
	case bpf.ALUOpShiftLeft:
		if v >= 32 {
			return 0, nil
		}
		return a << v, nil
	case bpf.ALUOpShiftRight:
		if v >= 32 {
			return 0, nil
		}
		return a >> v, nil
	}
	return 0, fmt.Errorf("unsupported alu op %v", op)
}

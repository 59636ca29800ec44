// Package bpfvm 在用户态对 seccomp BPF 程序求值。
//
// x/net/bpf 自带的虚拟机把绝对加载当作网络字节序的报文读取，
// 而 seccomp 程序读取的是本机字节序的 seccomp_data 结构，
// 直接套用会让所有比较都落在交换过字节的值上。这里按目标的
// 小端序实现加载，其余指令语义与标准 BPF 一致，用来在不安装
// 过滤器的情况下验证编译结果对具体调用的处置。
package bpfvm

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/bpf"
)

// Decode 把内核加载格式（sock_filter 数组、小端序）的程序字节
// 解码为指令序列
func Decode(raw []byte) ([]bpf.Instruction, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty program")
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("program size %d is not a multiple of 8", len(raw))
	}

	insts := make([]bpf.RawInstruction, 0, len(raw)/8)
	for off := 0; off < len(raw); off += 8 {
		insts = append(insts, bpf.RawInstruction{
			Op: binary.LittleEndian.Uint16(raw[off:]),
			Jt: raw[off+2],
			Jf: raw[off+3],
			K:  binary.LittleEndian.Uint32(raw[off+4:]),
		})
	}

	decoded, allDecoded := bpf.Disassemble(insts)
	if !allDecoded {
		return nil, fmt.Errorf("program contains undecodable instructions")
	}
	return decoded, nil
}

// Package policy 定义沙箱的系统调用白名单策略。
//
// 策略是一张静态规则表：每条规则命名一个系统调用、一个处理动作，
// 以及零个或多个参数谓词。规则内的谓词按"与"组合，全部成立才算命中；
// 同一系统调用的多条规则按声明顺序首次匹配生效；
// 没有命中任何规则的调用落入策略的默认动作。
// 策略一经构造不再修改，由编译后端整体转换为 BPF 过滤器。
package policy

import "github.com/zqzqsb/seccompgen/pkg/seccomp"

// CompareOp 是谓词的比较方式
type CompareOp int

// 比较方式常量定义
const (
	CompareInvalid     CompareOp = iota // 无效比较
	CompareEqual                        // 参数等于 Value
	CompareNotEqual                     // 参数不等于 Value
	CompareMaskedEqual                  // 参数与 Mask 按位与后等于 Value
)

// Predicate 是单个系统调用参数上的谓词
type Predicate struct {
	Arg   uint      // 参数序号，0 到 5
	Op    CompareOp // 比较方式
	Mask  uint64    // 掩码，仅 CompareMaskedEqual 使用
	Value uint64    // 比较目标值
}

// ArgEquals 构造相等谓词：第 arg 个参数等于 value
func ArgEquals(arg uint, value uint64) Predicate {
	return Predicate{Arg: arg, Op: CompareEqual, Value: value}
}

// ArgNotEquals 构造不等谓词：第 arg 个参数不等于 value
func ArgNotEquals(arg uint, value uint64) Predicate {
	return Predicate{Arg: arg, Op: CompareNotEqual, Value: value}
}

// ArgMaskedEquals 构造掩码相等谓词：第 arg 个参数与 mask 按位与后等于 value
func ArgMaskedEquals(arg uint, mask, value uint64) Predicate {
	return Predicate{Arg: arg, Op: CompareMaskedEqual, Mask: mask, Value: value}
}

// ArgBitsWithin32 要求第 arg 个参数的低 32 位不包含 allowed 以外的位。
// 掩码只覆盖低 32 位，高 32 位不参与比较，对应内核 32 位整型参数的
// 白名单位集检查。
func ArgBitsWithin32(arg uint, allowed uint32) Predicate {
	return ArgMaskedEquals(arg, uint64(^allowed), 0)
}

// ArgBitsWithin64 要求第 arg 个参数（按完整 64 位）不包含 allowed 以外的位
func ArgBitsWithin64(arg uint, allowed uint64) Predicate {
	return ArgMaskedEquals(arg, ^allowed, 0)
}

// Rule 是一条规则：对 Syscall 的一次调用在 Predicates 全部成立时采取 Action
type Rule struct {
	Syscall    string         // 系统调用名，由编译后端解析为目标架构的调用号
	Action     seccomp.Action // 命中后的处理动作
	Predicates []Predicate    // 参数谓词，空表示仅按调用号匹配
}

// Policy 是完整的过滤器策略
type Policy struct {
	DefaultAction seccomp.Action // 未命中任何规则时的动作
	BadArchAction seccomp.Action // 调用方架构不被策略识别时的动作
	NoNewPrivs    bool           // 禁止进程再获得新特权
	TSync         bool           // 把过滤器同步到进程的所有线程
	Rules         []Rule         // 按声明顺序排列的规则表
}

// Allow 追加一条放行规则
func (p *Policy) Allow(syscall string, preds ...Predicate) {
	p.Rules = append(p.Rules, Rule{
		Syscall:    syscall,
		Action:     seccomp.ActionAllow,
		Predicates: preds,
	})
}

// Errno 追加一条拒绝规则，调用方得到错误码 code 而不是被终止
func (p *Policy) Errno(code uint16, syscall string, preds ...Predicate) {
	p.Rules = append(p.Rules, Rule{
		Syscall:    syscall,
		Action:     seccomp.ActionErrno.WithReturnCode(code),
		Predicates: preds,
	})
}

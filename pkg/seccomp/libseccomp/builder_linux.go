// Package libseccomp 基于 libseccomp 把策略规则表编译为 seccomp 过滤器，
// 并把编译结果序列化为内核可加载的 BPF 程序和可读的反汇编文本。
package libseccomp

import (
	"fmt"

	libseccomp "github.com/seccomp/libseccomp-golang"

	"github.com/zqzqsb/seccompgen/pkg/policy"
	"github.com/zqzqsb/seccompgen/pkg/seccomp"
)

// Builder 把 policy.Policy 编译为 libseccomp 过滤器上下文
type Builder struct {
	Policy *policy.Policy
}

// Build 编译策略。
//
// 过程：
// 1. 校验目标 ABI 假设
// 2. 用默认动作初始化过滤器上下文
// 3. 设置全局属性（未知架构动作、禁止新特权、线程同步）
// 4. 按声明顺序逐条添加规则
//
// 任何一步失败立即返回错误，调用方不会拿到编译了一半的过滤器。
// 成功时调用方负责对返回的上下文调用 Release。
func (b *Builder) Build() (*libseccomp.ScmpFilter, error) {
	if err := policy.VerifyTarget(); err != nil {
		return nil, err
	}

	filter, err := libseccomp.NewFilter(toScmpAction(b.Policy.DefaultAction))
	if err != nil {
		return nil, fmt.Errorf("init filter context: %w", err)
	}
	if err := b.configure(filter); err != nil {
		filter.Release()
		return nil, err
	}
	return filter, nil
}

func (b *Builder) configure(filter *libseccomp.ScmpFilter) error {
	if err := filter.SetBadArchAction(toScmpAction(b.Policy.BadArchAction)); err != nil {
		return fmt.Errorf("set bad-arch action: %w", err)
	}
	if err := filter.SetNoNewPrivsBit(b.Policy.NoNewPrivs); err != nil {
		return fmt.Errorf("set no-new-privs: %w", err)
	}
	if err := filter.SetTsync(b.Policy.TSync); err != nil {
		return fmt.Errorf("set tsync: %w", err)
	}

	for _, r := range b.Policy.Rules {
		if err := addRule(filter, r); err != nil {
			return err
		}
	}
	return nil
}

// addRule 添加一条规则。系统调用按名字解析；谓词转换为
// libseccomp 条件，由库按"与"组合。
func addRule(filter *libseccomp.ScmpFilter, r policy.Rule) error {
	nr, err := libseccomp.GetSyscallFromName(r.Syscall)
	if err != nil {
		return fmt.Errorf("resolve syscall %q: %w", r.Syscall, err)
	}
	action := toScmpAction(r.Action)

	if len(r.Predicates) == 0 {
		if err := filter.AddRule(nr, action); err != nil {
			return fmt.Errorf("add rule %s: %w", r.Syscall, err)
		}
		return nil
	}

	conds := make([]libseccomp.ScmpCondition, 0, len(r.Predicates))
	for _, pred := range r.Predicates {
		cond, err := toScmpCondition(pred)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.Syscall, err)
		}
		conds = append(conds, cond)
	}
	if err := filter.AddRuleConditional(nr, action, conds); err != nil {
		return fmt.Errorf("add conditional rule %s: %w", r.Syscall, err)
	}
	return nil
}

func toScmpCondition(p policy.Predicate) (libseccomp.ScmpCondition, error) {
	switch p.Op {
	case policy.CompareEqual:
		return libseccomp.MakeCondition(p.Arg, libseccomp.CompareEqual, p.Value)
	case policy.CompareNotEqual:
		return libseccomp.MakeCondition(p.Arg, libseccomp.CompareNotEqual, p.Value)
	case policy.CompareMaskedEqual:
		return libseccomp.MakeCondition(p.Arg, libseccomp.CompareMaskedEqual, p.Mask, p.Value)
	default:
		return libseccomp.ScmpCondition{}, fmt.Errorf("unsupported compare op %d", p.Op)
	}
}

// toScmpAction 把策略动作转换为 libseccomp 的动作类型
//
// 转换对应关系：
//   - ActionAllow -> ActAllow
//   - ActionErrno -> ActErrno，携带返回码
//   - 其他        -> ActKillProcess
func toScmpAction(a seccomp.Action) libseccomp.ScmpAction {
	switch a.Action() {
	case seccomp.ActionAllow:
		return libseccomp.ActAllow
	case seccomp.ActionErrno:
		return libseccomp.ActErrno.SetReturnCode(int16(a.ReturnCode()))
	default:
		return libseccomp.ActKillProcess
	}
}

// seccompgen 生成最小沙箱的 seccomp 过滤器定义文件。
//
// 用法：
//
//	seccompgen out.bpf out.pfc
//
// 程序一次性构建固定的系统调用白名单策略，编译后导出两份：
// out.bpf 是内核可加载的原始 sock_filter 指令数组，交给运行期
// 组件在执行不可信代码前安装；out.pfc 是同一策略的按行可读
// 反汇编，用于审计和比对。生成结果只依赖策略本身，重复运行
// 输出完全一致。
//
// 任何一步失败（参数个数不对、规则编译失败、文件写入失败）
// 都会在标准错误上报告失败的操作并以非零状态退出；
// 两份导出都成功才会返回成功状态。
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/zqzqsb/seccompgen/pkg/policy"
	"github.com/zqzqsb/seccompgen/pkg/seccomp/libseccomp"
)

var errUsage = errors.New("usage: seccompgen <out.bpf> <out.pfc>")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seccompgen: %v\n", err)
		os.Exit(1)
	}
}

// run 构建、编译并导出策略。所有失败都向上传播到 main 的
// 单一报告出口；过滤器上下文在本函数作用域内持有并释放。
func run(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	bpfPath, pfcPath := args[0], args[1]

	b := libseccomp.Builder{Policy: policy.Minimal()}
	filter, err := b.Build()
	if err != nil {
		return err
	}
	defer filter.Release()

	if err := libseccomp.WriteBPF(filter, bpfPath); err != nil {
		return err
	}
	if err := libseccomp.WritePFC(filter, pfcPath); err != nil {
		return err
	}
	return nil
}

package libseccomp

import (
	"fmt"
	"io"
	"os"

	libseccomp "github.com/seccomp/libseccomp-golang"

	"github.com/zqzqsb/seccompgen/pkg/seccomp"
)

// WriteBPF 把编译结果以内核可加载的原始指令数组形式写入 path。
// 文件不存在则创建，存在则截断。
func WriteBPF(filter *libseccomp.ScmpFilter, path string) error {
	return writeFile(path, filter.ExportBPF)
}

// WritePFC 把编译结果以按行的可读反汇编形式写入 path，
// 用于审计和比对。文件不存在则创建，存在则截断。
func WritePFC(filter *libseccomp.ScmpFilter, path string) error {
	return writeFile(path, filter.ExportPFC)
}

func writeFile(path string, export func(*os.File) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := export(f); err != nil {
		f.Close()
		return fmt.Errorf("export to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ExportRaw 取回编译结果的原始 BPF 程序字节。
// libseccomp 只往文件描述符导出，因此经由一根管道中转。
func ExportRaw(filter *libseccomp.ScmpFilter) (seccomp.Filter, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	defer r.Close()

	errCh := make(chan error, 1)
	go func() {
		err := filter.ExportBPF(w)
		w.Close()
		errCh <- err
	}()

	bin, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exported program: %w", err)
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("export bpf: %w", err)
	}
	return seccomp.Filter(bin), nil
}

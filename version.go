package main

import (
	"fmt"
	"runtime"

	"github.com/Quaternijkon/HomDGCat/internal/version"
)

// printVersion 输出版本串与构建平台。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
	fmt.Fprintf(stdOut, "  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

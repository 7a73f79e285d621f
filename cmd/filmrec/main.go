// filmrec 是融合推荐引擎的命令行入口：从 CSV 或 Redis 加载数据集快照，执行 UBCF / IBCF / 内容 / 融合推荐并输出 JSON。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

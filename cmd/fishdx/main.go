/*
 * @module cmd/fishdx
 * @description 离线命令行工具：查看知识库、按症状诊断、校验知识库文件
 * @architecture 命令行入口 - cobra
 * @documentReference DESIGN.md
 * @stateFlow 加载知识库文件或内置种子 -> 构建快照 -> 执行命令
 * @rules 不连接数据库与消息中间件；与HTTP接口使用相同的匹配逻辑
 * @dependencies github.com/spf13/cobra
 * @refs service/diagnosis, service/knowledge
 */

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

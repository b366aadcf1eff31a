package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向仪表盘进程发送 SIGHUP，使其重新打开日志并重新加载数据
func main() {
	pid := flag.Int("p", 0, "仪表盘进程号")
	pidFile := flag.String("pid", "dashboard.pid", "进程号文件")
	flag.Parse()

	target := *pid
	if target == 0 {
		data, err := os.ReadFile(*pidFile)
		if err != nil {
			log.Fatal("Failed to read pid file:", err)
		}
		target, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			log.Fatal("Invalid pid file:", err)
		}
	}

	if err := syscall.Kill(target, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("已向进程 %d 发送 SIGHUP", target)
}

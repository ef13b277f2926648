// Package ui 两行 16 列显示屏与按键输入
package ui

import (
	"fmt"
	"io"
	"sync"
)

// Columns 每行最多显示的字符数
const Columns = 16

// Channel 显示屏
type Channel interface {
	Prompt(line1, line2 string)
	Clear()
}

// ConsoleUI 把两行文本写到 io.Writer（终端或日志），模拟 16x2 LCD
type ConsoleUI struct {
	mu    sync.Mutex
	out   io.Writer
	lines [2]string
}

// NewConsoleUI 创建控制台显示
func NewConsoleUI(out io.Writer) *ConsoleUI {
	return &ConsoleUI{out: out}
}

// Prompt 显示两行文本，超出 16 列的部分截断
func (c *ConsoleUI) Prompt(line1, line2 string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = [2]string{truncate(line1), truncate(line2)}
	fmt.Fprintf(c.out, "+----------------+\n|%-16s|\n|%-16s|\n+----------------+\n", c.lines[0], c.lines[1])
}

// Clear 清屏
func (c *ConsoleUI) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = [2]string{}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > Columns {
		return string(r[:Columns])
	}
	return s
}

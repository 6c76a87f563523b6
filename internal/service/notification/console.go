package notification

import (
	"context"
	"fmt"
)

var _ ProgressNotifier = (*ConsoleNotifier)(nil)

// ConsoleNotifier 本地调试用的通知通道, 直接打印到标准输出
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Send(_ context.Context, chatID int64, text string) bool {
	fmt.Printf("[notify %d] %s\n", chatID, text)
	return true
}

func (c *ConsoleNotifier) BeginProgress(_ context.Context, chatID int64, text string) (Progress, error) {
	fmt.Printf("[progress %d] %s\n", chatID, text)
	return &consoleProgress{chatID: chatID}, nil
}

type consoleProgress struct {
	chatID int64
}

func (p *consoleProgress) Update(_ context.Context, text string) error {
	fmt.Printf("[progress %d] %s\n", p.chatID, text)
	return nil
}

func (p *consoleProgress) Close(_ context.Context) {}

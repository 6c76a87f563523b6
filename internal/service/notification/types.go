package notification

import "context"

// Notifier 外部消息通道
// Send 尽力送达: 不抛出传输错误, 超时有界, 失败返回false并记日志
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) bool
}

// Progress 一条会被反复编辑、最终删除的临时进度消息
type Progress interface {
	Update(ctx context.Context, text string) error
	// Close removes the indicator. Safe to call more than once.
	Close(ctx context.Context)
}

// ProgressNotifier 支持倒计时指示器的通知通道
type ProgressNotifier interface {
	Notifier
	BeginProgress(ctx context.Context, chatID int64, text string) (Progress, error)
}

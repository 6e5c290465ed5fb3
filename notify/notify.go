package notify

import (
	"fmt"
	"log"

	"eventmap/models"
)

// Notifier 是對外寄信服務的邊界；實際遞送（SMTP/queue）在這個 core 之外。
// 每封信的失敗由呼叫端決定要不要中斷（reminder 批次是 log 後繼續）
type Notifier interface {
	EventReminder(e models.Event, recipients []string) error
	EventPublished(e models.Event, recipient string) error
}

// LogNotifier 把通知寫進 log，開發跟測試環境用
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) EventReminder(e models.Event, recipients []string) error {
	log.Printf("[notify] reminder %q (%s) -> %d recipient(s)",
		e.Title, e.StartDateTime.Format("2006-01-02 15:04"), len(recipients))
	return nil
}

func (n *LogNotifier) EventPublished(e models.Event, recipient string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient for event %s", e.ID)
	}
	log.Printf("[notify] published %q -> %s", e.Title, recipient)
	return nil
}

package services

import (
	"context"
	"time"
)

const (
	baseSendBudget         = 30 * time.Second
	perRecipientSendBudget = 10 * time.Second
)

// sendBudget is how long a detached send to n recipients may run.
func sendBudget(recipients int) time.Duration {
	if recipients < 0 {
		recipients = 0
	}
	return baseSendBudget + time.Duration(recipients)*perRecipientSendBudget
}

// detachSend returns a context that ignores the caller's cancellation, so mail
// started by a handler or a cron tick is not cut off when the caller returns.
// Values are kept and the context expires after budget.
func detachSend(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), budget)
}

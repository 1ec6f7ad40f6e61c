package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// ReceiptNumber derives a display receipt number from the last six digits
// of the millisecond clock.
func ReceiptNumber(at time.Time) string {
	return fmt.Sprintf("RCP%06d", at.UnixMilli()%1_000_000)
}

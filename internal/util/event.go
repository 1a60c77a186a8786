package util

import (
	"context"
	"fmt"
	"time"
)

// ProcessWithTimeout bounds the handling of one broker message. A handler
// that blocks past the timeout is abandoned and the message reported failed.
func ProcessWithTimeout(timeout time.Duration, data []byte, callback func(ctx context.Context, data []byte) error) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callback(ctx, data)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("processing timeout for message: %s", string(data))
	case err := <-done:
		return err
	}
}

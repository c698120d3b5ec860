package browser

import "context"

// CombineContext derives a context from primary that is canceled when either
// primary or secondary is done. Values flow from primary, which matters for
// chromedp: the session context carries the CDP target, while the secondary
// context carries the operational deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

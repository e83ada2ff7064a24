package engine

import "fmt"

// depthQuota bounds how deeply dispatches may nest.
//
// Every invocation (send, super or methodMissing) enters the quota before the
// implementation runs and leaves it afterwards. Unbounded recursion through
// super or methodMissing surfaces as DEPTH_EXCEEDED instead of a stack overflow.
type depthQuota struct {
	max     int
	current int
}

func newDepthQuota(max int) *depthQuota {
	return &depthQuota{max: max}
}

// enter records one more active frame, failing if the limit would be passed.
func (q *depthQuota) enter(name string) error {
	if q.current >= q.max {
		return &DispatchError{
			Code:    ErrCodeDepthExceeded,
			Message: fmt.Sprintf("dispatch depth %d exceeds limit %d", q.current+1, q.max),
			Name:    name,
		}
	}
	q.current++
	return nil
}

func (q *depthQuota) leave() {
	if q.current > 0 {
		q.current--
	}
}

// Depth returns the number of active dispatch frames.
func (e *Engine) Depth() int {
	return e.quota.current
}

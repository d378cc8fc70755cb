package queue

import "time"

func (q *RedisQueue) SetClock(now func() time.Time) {
	q.now = now
}

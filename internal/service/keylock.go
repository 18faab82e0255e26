package service

import "sync"

// keyedMutex 按帖子 ID 串行化同一计数行上的并发变更。
// 锁对象按需创建后常驻（键空间为存活帖子数，可接受）。
type keyedMutex struct {
	locks sync.Map // int64 -> *sync.Mutex
}

func (k *keyedMutex) lock(key int64) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

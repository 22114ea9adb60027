package migration

/*
 * ============================================================================
 * Chunker - 可让出的迭代器
 * ============================================================================
 *
 * 单线程事件循环不能被一次性编码全部快照或应用一大批增量命令的操作长期占用；
 * 它们必须切成小块，每块之间把控制权交还给事件循环，让其继续服务其他客户端
 * 和集群心跳（spec.md §5, §9）。Chunker 把"做一块工作"的函数包装成
 * Next() (done bool, err error) 的形状，调用方在自己的 tick 里反复调用它。
 */

// Chunker runs work in bounded slices, yielding control back to its caller
// between slices instead of running to completion in one call.
type Chunker struct {
	step func() (done bool, err error)
}

// NewChunker wraps step, a function that performs one bounded unit of work
// and reports whether the whole job is now done.
func NewChunker(step func() (done bool, err error)) *Chunker {
	return &Chunker{step: step}
}

// Next performs one unit of work. Callers invoke this from their own
// cooperative tick (e.g. once per event-loop iteration) until done is true
// or err is non-nil.
func (c *Chunker) Next() (done bool, err error) {
	return c.step()
}

// RunToCompletion drives c to completion, calling yield between steps. This
// is a convenience for tests and for code that runs on its own goroutine:
// cluster.MigrationController.runExport calls it from the export job's
// goroutine with a no-op yield. There is no shared dispatch queue.
func RunToCompletion(c *Chunker, yield func()) error {
	for {
		done, err := c.Next()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if yield != nil {
			yield()
		}
	}
}

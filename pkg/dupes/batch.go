package dupes

// BatchController tracks the dispatch batch size when adaptive batching is
// enabled. It is a plain integral feedback controller: grow while the queue
// backlog is low to keep worker bots saturated, shrink while it is high so
// the queue does not hoard memory, always clamped to [BatchMin, BatchMax].
type BatchController struct {
	cfg *Config
}

func NewBatchController(cfg *Config) *BatchController {
	return &BatchController{cfg: cfg}
}

// NextSize returns the batch size to use after observing the given backlog.
func (b *BatchController) NextSize(backlog, current int) int {
	size := current
	if backlog < b.cfg.BacklogLow {
		size += b.cfg.BatchStep
	} else if backlog > b.cfg.BacklogHigh {
		size -= b.cfg.BatchStep
	}
	if size < b.cfg.BatchMin {
		size = b.cfg.BatchMin
	}
	if size > b.cfg.BatchMax {
		size = b.cfg.BatchMax
	}
	return size
}

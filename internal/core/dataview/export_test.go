package dataview

// Runs reports how many times filtering and sorting actually executed
func (c *Controller[T]) Runs() (filters, sorts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterRuns, c.sortRuns
}

package colors

// init ensures ANSI coloring is enabled. Unix terminals support ANSI escape codes out of the box while Windows
// requires a kernel call to determine support.
func init() {
	EnableColor()
}

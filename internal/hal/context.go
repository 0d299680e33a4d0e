// internal/hal/context.go

package hal

// Context is the saved execution state of a task. Each context that actually
// runs is backed by a goroutine; a task not currently running is parked on
// its resume channel. The channel is buffered so that a switch toward a task
// that has not reached its park point yet deposits the wakeup instead of
// blocking the switching CPU.
type Context struct {
	resume chan struct{}
}

// NewContext builds a context with no execution behind it yet.
// Arm it with Start before the first switch toward it.
func NewContext() *Context {
	return &Context{resume: make(chan struct{}, 1)}
}

// AdoptContext turns the calling goroutine into a schedulable context.
// Used for the init task: the boot goroutine keeps running until it first
// switches away, at which point it parks like any other task.
func AdoptContext() *Context {
	return &Context{resume: make(chan struct{}, 1)}
}

// Start arms a fresh context: the goroutine waits for its first dispatch and
// then runs fn. fn is responsible for never returning into scheduler-free
// code while it still owns a CPU (exit hands the CPU off first).
func (c *Context) Start(fn func()) {
	go func() {
		<-c.resume
		fn()
	}()
}

// Switch is the single control-transfer primitive: resume next, then park the
// caller until some future switch resumes it. The caller must not hold the
// run-queue lock across this call.
func Switch(from, to *Context) {
	to.resume <- struct{}{}
	<-from.resume
}

// Handoff resumes next without parking the caller. This is the final switch
// out of an exiting task: the calling context never runs again.
func Handoff(to *Context) {
	to.resume <- struct{}{}
}

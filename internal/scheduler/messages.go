package scheduler

// inbound is the tagged union of messages the event loop accepts over its
// ingress mailbox. Every goroutine other than the loop itself (the
// transport reader, a UI, the CLI) communicates with the scheduler
// exclusively by constructing and sending one of these; none of them ever
// touch scheduler state directly.
type inbound interface{ isInbound() }

// lineMsg carries one raw line read from the board by the transport's
// reader goroutine.
type lineMsg struct{ line string }

func (lineMsg) isInbound() {}

// getParamMsg requests the current value of a parameter; reply is sent
// exactly once and is always buffered by at least one slot so the loop
// never blocks sending into it.
type getParamMsg struct {
	kind  ParameterKind
	reply chan ParameterValue
}

func (getParamMsg) isInbound() {}

// setParamMsg requests a parameter be written through to Settings and
// applied live; done is closed once the commit has taken effect.
type setParamMsg struct {
	kind  ParameterKind
	value ParameterValue
	done  chan struct{}
}

func (setParamMsg) isInbound() {}

// queryMsg forwards an operator-issued free-form query straight to the
// Sink, stamped with the time the loop actually processed it.
type queryMsg struct{ text string }

func (queryMsg) isInbound() {}

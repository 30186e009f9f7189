package insteon

// ResponseStatus is the outcome of one command/response exchange.
//
// There are deliberately only four outcomes. The channel gives no way to
// distinguish a command lost on the way out from a confirmation lost on the
// way back, so both collapse into StatusTimeout.
type ResponseStatus int

const (
	// StatusUnsent means the command was never transmitted, or failed at
	// the transport before reaching the powerline.
	StatusUnsent ResponseStatus = iota

	// StatusSuccess means the expected ack (or device direct ack) arrived.
	StatusSuccess

	// StatusFailure means the device explicitly rejected the command with
	// a direct nak.
	StatusFailure

	// StatusTimeout means no confirmation arrived before the deadline.
	StatusTimeout
)

// String returns a short lowercase label for logging.
func (s ResponseStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimeout:
		return "timeout"
	default:
		return "unsent"
	}
}

// MultipleStatus aggregates the outcomes of a multi-command operation.
//
// The aggregate is StatusSuccess only when every constituent succeeded.
// A single failure dominates timeouts, and a timeout dominates unsent,
// so the caller sees the most informative non-success outcome.
func MultipleStatus(statuses ...ResponseStatus) ResponseStatus {
	if len(statuses) == 0 {
		return StatusUnsent
	}
	agg := StatusSuccess
	for _, s := range statuses {
		switch s {
		case StatusFailure:
			return StatusFailure
		case StatusTimeout:
			agg = StatusTimeout
		case StatusUnsent:
			if agg == StatusSuccess {
				agg = StatusUnsent
			}
		case StatusSuccess:
		}
	}
	return agg
}

package protocol

// ReplyKind discriminates the inbound Reply union.
type ReplyKind int

const (
	ReplyGetRaw ReplyKind = iota
	ReplyGetFiltered
	ReplySetValve
	ReplySetPump
	ReplyUnknown
)

// Reply is the tagged union of lines the board sends back. Success is true
// iff the board prefixed the line with the OK token. GetRaw/GetFiltered
// carry optional per-probe readings and an optional Status; SetValve/
// SetPump carry an optional actuator-now-on boolean (absent if the board
// didn't echo it); Unknown carries the raw line verbatim.
type Reply struct {
	Kind        ReplyKind
	Success     bool
	TDS         *float64
	PH          *float64
	Temperature *float64
	Status      *Status
	On          *bool
	Raw         string
}

// Reading returns the reply's reading for the given channel, and whether it
// was present.
func (r Reply) Reading(c Channel) (float64, bool) {
	var p *float64
	switch c {
	case TDS:
		p = r.TDS
	case PH:
		p = r.PH
	case Temperature:
		p = r.Temperature
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

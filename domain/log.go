package domain

// LogEnvelope is a log line published by a node on the pub/sub bus.
type LogEnvelope struct {
	Prefix   string
	NodeName string
	Message  string
}

// String renders the envelope as "<prefix> <node>: <message>".
func (e LogEnvelope) String() string {
	return e.Prefix + " " + e.NodeName + ": " + e.Message
}

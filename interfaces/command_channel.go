package interfaces

// CommandChannel is the request/response control channel of a single coprocessor.
//
// Every call is a bounded, independent exchange: implementations apply their own per-call
// timeout and never retry. A nil error means the node acknowledged the request (HTTP 200 for
// adapters.CommandHTTP); any transport failure or other status is returned as an error.
//
// Implemented by adapters.CommandHTTP. Called from service.NodeEndpoint.
//
//go:generate moq -stub -out mock/command_channel.go -pkg mock . CommandChannel
type CommandChannel interface {
	// SetConfig pushes the raw configuration string to the node (POST /set/config).
	SetConfig(rawConfig string) error

	// StartProcesses asks the node to start the given process identifiers (POST /start/process).
	StartProcesses(processTypes []string) error

	// StopProcesses asks the node to stop the given process identifiers (POST /stop/process).
	// An empty list is a valid request.
	StopProcesses(processTypes []string) error
}

// CommandChannelFactory builds the command channel for a node's base address
// (e.g. http://10.0.0.12:5000).
type CommandChannelFactory func(baseURL string) CommandChannel

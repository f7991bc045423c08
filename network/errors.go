package network

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrConnectionFailed indicates the client could not reach the node.
	ErrConnectionFailed = s5err.New(s5err.KindConnection, "network: connection failed")

	// ErrUnknownNode indicates the remote node id does not match the node reached.
	ErrUnknownNode = s5err.New(s5err.KindConnection, "network: unknown remote node")

	// ErrInvalidNodeID indicates an empty or malformed node id.
	ErrInvalidNodeID = s5err.New(s5err.KindInvalidInput, "network: invalid node id")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = s5err.New(s5err.KindConnection, "network: session closed")

	// ErrRequestFailed indicates a request failed in transit after the session was established.
	ErrRequestFailed = s5err.New(s5err.KindStorage, "network: request failed")

	// ErrRejected indicates the node refused a write or read.
	ErrRejected = s5err.New(s5err.KindStorage, "network: request rejected by node")

	// ErrNotFound indicates the node has no blob or document at the address.
	ErrNotFound = s5err.New(s5err.KindFileNotFound, "network: not found")

	// ErrAuthFailed indicates the node rejected the client identity.
	ErrAuthFailed = s5err.New(s5err.KindConnection, "network: authentication failed")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = s5err.New(s5err.KindStorage, "network: invalid response")
)

package conn

import "time"

// Timeout and lifecycle limits from the concurrency model. The loop's
// periodic sweep (see eventloop.Loop) checks every live connection
// against these once per sweep tick rather than arming one timer per
// connection.
const (
	// ClientTimeout bounds how long a connection may sit without making
	// forward progress on the current request (no bytes read, no bytes
	// written).
	ClientTimeout = 30 * time.Second

	// KeepaliveTimeout bounds how long an idle, fully-served connection may
	// wait for the next pipelined/keep-alive request before the server
	// closes it.
	KeepaliveTimeout = 60 * time.Second

	// MaxConnectionTime bounds the total lifetime of a connection
	// regardless of activity, so a client that keeps it alive with a
	// steady trickle of requests can't hold a slot forever.
	MaxConnectionTime = 300 * time.Second

	// MaxRequestsPerConnection bounds how many requests one keep-alive
	// connection may serve before the server closes it after the response.
	MaxRequestsPerConnection = 100

	// SweepInterval is how often the loop scans live connections for
	// expired timeouts.
	SweepInterval = 5 * time.Second
)

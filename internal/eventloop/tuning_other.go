//go:build !linux && !darwin

package eventloop

// applyPlatformConnOptions is a no-op on platforms without the extra
// keepalive knobs.
func applyPlatformConnOptions(fd int) {}

// applyPlatformListenerOptions is a no-op on platforms without
// TCP_DEFER_ACCEPT or an equivalent.
func applyPlatformListenerOptions(fd int) {}

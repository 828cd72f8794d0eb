//go:build !peerdebug

package peer

// strictPreconditions turns caller precondition violations into panics.
// Build with -tags peerdebug to enable.
const strictPreconditions = false

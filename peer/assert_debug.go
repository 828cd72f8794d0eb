//go:build peerdebug

package peer

const strictPreconditions = true

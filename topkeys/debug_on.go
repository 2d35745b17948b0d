//go:build topkeys_debug

package topkeys

// Built with -tags topkeys_debug every mutating call re-verifies the whole
// order list and index. O(n) per call.
const debugging = true

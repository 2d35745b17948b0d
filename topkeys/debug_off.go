//go:build !topkeys_debug

package topkeys

const debugging = false

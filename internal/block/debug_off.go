//go:build !kigodebug

package block

const debugEnabled = false

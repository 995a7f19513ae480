//go:build !kigodebug

package errbuf

const debugEnabled = false

//go:build kigodebug

package errbuf

const debugEnabled = true

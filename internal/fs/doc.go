// Package fs provides the filesystem abstraction behind archive.LocalStore.
//
//   - [LocalFS]: production implementation on the os package
//   - [FaultyFS]: wraps another FileSystem and injects write, sync, close
//     and rename failures for tests
//
// Operations take no context: local filesystem calls are short and cannot
// be interrupted at the syscall level.
package fs

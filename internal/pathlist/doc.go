// SPDX-License-Identifier: MPL-2.0

// Package pathlist models one ordered search path: the entries it contains,
// where each entry came from, and the deduplication primitive every consumer
// relies on. A list is produced by a probe (compiler, interpreter) or by
// splitting an environment variable, and is consumed by the matcher.
package pathlist

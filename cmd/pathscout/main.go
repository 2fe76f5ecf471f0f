// SPDX-License-Identifier: MPL-2.0

// Command pathscout searches for files, libraries and modules across the
// search paths a developer machine exposes: PATH, per-compiler include and
// library directories, per-interpreter module directories, and configurable
// environment variables.
package main

func main() {
	Execute()
}

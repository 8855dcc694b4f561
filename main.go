// SPDX-License-Identifier: MPL-2.0

// snipr runs code snippets through a configurable interpreter.
package main

import cmd "github.com/snipr/snipr/cmd/snipr"

func main() {
	cmd.Execute()
}

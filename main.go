// SPDX-License-Identifier: MPL-2.0

package main

import cmd "lockstep-cli/cmd/lockstep"

func main() {
	cmd.Execute()
}

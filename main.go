// SPDX-License-Identifier: MPL-2.0

package main

import cmd "remotectl/cmd/remotectl"

func main() {
	cmd.Execute()
}

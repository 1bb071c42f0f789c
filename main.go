// Command menuscout is the entry point for the scan service and CLI.
package main

import "github.com/sohogrid/menuscout/cmd"

func main() {
	cmd.Execute()
}

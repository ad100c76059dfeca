// Command mstep runs System M fixture programs to completion or drives
// them one step at a time from an interactive console.
//
// The root/subcommand split follows the pack's own cobra usage in
// golang-debug/cmd/viewcore (a root flag set plus one cobra.Command per
// verb); unlike viewcore's single flat binary, each verb here gets its
// own Run so flags don't leak between "run" and "repl".
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "mstep",
		Short: "Run and inspect System M materialization programs",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

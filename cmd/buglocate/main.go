// Command buglocate is the CLI front-end for the bug localization engine.
package main

import (
	"fmt"
	"os"

	"github.com/aman-cerp/buglocate/cmd/buglocate/cmd"
	"github.com/aman-cerp/buglocate/internal/bugerr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bugerr.ExitCode(err))
	}
}

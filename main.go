// ftpvault serves one directory over FTP with settings, secrets and
// process state kept in a shared key/value store.
package main

import (
	"fmt"
	"os"

	"github.com/bitmark-inc/exitwithstatus"

	"ftpvault/internal/cmd"
)

func main() {
	// Exit unwinds through this handler so deferred cleanup runs first.
	defer exitwithstatus.Handler()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ftpvault:", err)
		exitwithstatus.Exit(cmd.ExitCode(err))
	}
}

// Command ticketctl is the operator CLI: it prints credentials for reprints,
// checks a scanned payload offline and applies database migrations.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ticketctl:", err)
		os.Exit(1)
	}
}

// Command availmon watches a rental listing page and reports changes in the
// number of bookable residences.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "availmon:", err)
		os.Exit(1)
	}
}

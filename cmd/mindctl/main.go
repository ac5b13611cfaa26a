// Command mindctl works with mind maps from the terminal: it lists, exports
// and imports stored maps, classifies labels, expands nodes of exported
// documents and signs development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

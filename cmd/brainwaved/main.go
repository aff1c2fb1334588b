package main

import (
	"flag"
	"fmt"
	"os"

	"brainwave/internal/bootstrap"
)

func main() {
	documentPath := flag.String("document", "", "HTML file to attach as a page for text injection")
	flag.Parse()

	if err := bootstrap.Run(*documentPath); err != nil {
		fmt.Fprintf(os.Stderr, "brainwaved: %v\n", err)
		os.Exit(1)
	}
}

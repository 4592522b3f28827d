// Command hash-garment prints the content fingerprint of one or more image
// files in the format the API expects in an upload's hash field. Useful for
// exercising the deduplication path by hand.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-garment <file> [file...]")
		os.Exit(1)
	}

	exitCode := 0
	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
			exitCode = 1
			continue
		}

		sum := sha256.Sum256(data)
		fmt.Printf("%s  %s\n", hex.EncodeToString(sum[:]), path)
	}

	os.Exit(exitCode)
}

package main

import (
	"fmt"
	"os"

	"github.com/cyclopcam/labelconv/pkg/pwdhash"
)

// Prints the hash of an API key, for the "apiKeys" list of the labelconvd config.
// With no arguments, a new random key is generated and printed alongside its hash.
// For example:
// pwdhash
// pwdhash mysecretkey

func main() {
	if len(os.Args) > 2 {
		fmt.Printf("Usage: pwdhash [key]\n")
		os.Exit(1)
	}
	key := ""
	if len(os.Args) == 2 {
		key = os.Args[1]
	} else {
		key = pwdhash.NewKey()
		fmt.Printf("key:  %v\n", key)
	}
	fmt.Printf("hash: %v\n", pwdhash.Hash(key))
}

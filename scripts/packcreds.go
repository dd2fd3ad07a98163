// One-off: go run scripts/packcreds.go <remote-url> <remote-key> [base-link]
package main

import (
	"fmt"
	"net/url"
	"os"

	"Tripboard/internal/auth"
	"Tripboard/internal/cache"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: packcreds <remote-url> <remote-key> [base-link]")
		os.Exit(2)
	}
	packed, err := auth.Pack(cache.Credentials{URL: os.Args[1], Key: os.Args[2]})
	if err != nil {
		panic(err)
	}
	if len(os.Args) < 4 {
		fmt.Print(packed)
		return
	}
	u, err := url.Parse(os.Args[3])
	if err != nil {
		panic(err)
	}
	q := u.Query()
	q.Set(auth.ParamPacked, packed)
	u.RawQuery = q.Encode()
	fmt.Print(u.String())
}

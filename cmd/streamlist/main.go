// Command streamlist browses Twitch games and streams page by page, warms the
// response cache and serves paginated lists over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

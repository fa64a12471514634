// Command iconfix loads an HTML document into a live host, attaches the icon
// repair runtime and replays injected mutations against it. It prints the
// repaired tree, which makes it handy for checking how the runtime reacts to
// a given page and a given stream of changes.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

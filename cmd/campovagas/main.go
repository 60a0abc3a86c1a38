// Command campovagas is a terminal client for the marketplace: it keeps a
// session on disk and reports what the signed-in user may open.
package main

import "os"

func main() {
	os.Exit(run(os.Args))
}

// Command gmailwrapper is a command-line Gmail client.
//
// Build with -tags sqlite_fts5 (make build) to rank cache searches with
// FTS5; without it search falls back to substring matching.
package main

import "github.com/lu-zhengda/gmailwrapper/internal/cli"

func main() {
	cli.Execute()
}

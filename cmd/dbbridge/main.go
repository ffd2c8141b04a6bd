// Command dbbridge serves JSON bridge requests against MongoDB and SQLite.
package main

import "github.com/mesh-intelligence/dbbridge/internal/cli"

func main() {
	cli.Execute()
}

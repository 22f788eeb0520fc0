// main.go
package main

import "github.com/anmicius0/artifactory-sync/internal/cmd"

func main() {
	cmd.Execute()
}

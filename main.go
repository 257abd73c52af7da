package main

import "github.com/ByLCY/versereel/cmd"

func main() {
	cmd.Execute()
}

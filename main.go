package main

import "github.com/wavesurfer/mctg/cmd"

func main() {
	cmd.Execute()
}

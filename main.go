package main

import "github.com/wafprobe/wafprobe/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}

package main

import "github.com/dulmini1119/tms-sub001/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/gaurav-prasanna/mdmend/cmd"

func main() {
	cmd.Execute()
}

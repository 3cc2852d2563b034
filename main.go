package main

import "github.com/andresmejia3/reptrack/cmd"

func main() {
	cmd.Execute()
}

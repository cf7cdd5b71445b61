package main

import (
	"gitlab.com/badgerdao/settsim/cmd/settsim/cmd"
)

func main() {
	cmd.Execute()
}

package main

import "github.com/Manu343726/lockstep/cmd"

func main() {
	cmd.Execute()
}

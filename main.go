/*
Copyright 2025 RaceIQ
*/
package main

import "github.com/raceiq/raceiq-core-go/cmd"

func main() {
	cmd.Execute()
}

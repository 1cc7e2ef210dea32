package main

import "github.com/regwatch/dreal-scraper/cmd"

func main() {
	cmd.Execute()
}

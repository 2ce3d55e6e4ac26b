package main

import "skinwall/internal/app"

var (
	Version = "2.0.0"
	Commit  = "none"  //Current commit
	Build   = "local" //Building time
)

func main() {
	app.Run(Version, Commit, Build)
}

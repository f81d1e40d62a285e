package main

import "github.com/thereayou/roomline/cmd/server"

func main() {
	srv := server.NewServer()
	srv.Run()
}

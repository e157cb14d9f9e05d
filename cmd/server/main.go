package main

import "reviewcall/internal/app/server"

func main() {
	server.Run()
}

package main

import (
	"github.com/gin-gonic/gin"

	"capdraft/api"
)

func main() {
	args := ParseArgs()
	if !args.Validate() {
		panic("missing arguments")
	}
	server, err := api.NewServer(args.ServerConfig)
	if err != nil {
		panic(err)
	}
	defer server.Close()
	server.Start()

	router := gin.Default()
	server.Register(router)
	if err := router.Run(args.ServerURL); err != nil {
		panic(err)
	}
}

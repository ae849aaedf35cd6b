// Package main is the syncstream entry point (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/linomassaro/SyncStream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

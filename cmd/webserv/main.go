// Command webserv runs the HTTP server against a single configuration
// file given as the program's only argument.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValGSgit/webserv-sub000/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config-file>\n", os.Args[0])
		return 2
	}

	// A half-closed peer must surface as a recoverable write error, not a
	// process-killing signal; internal/wire already treats EPIPE as a
	// normal connection-close condition.
	signal.Ignore(syscall.SIGPIPE)

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

	srv, err := server.New(os.Args[1], logger)
	if err != nil {
		logger.Printf("startup failed: %v", err)
		return 1
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Printf("received %s, shutting down", sig)
		srv.Stop()
	}()

	if err := srv.Run(); err != nil {
		logger.Printf("server stopped: %v", err)
		return 1
	}
	return 0
}

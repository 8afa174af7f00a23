package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; environment variables win
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		if _, werr := fmt.Fprintln(os.Stderr, "Error:", err); werr != nil {
			fmt.Println("Error:", err)
		}
		os.Exit(1)
	}
}

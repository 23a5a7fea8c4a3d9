// Command hash-password prints a bcrypt hash for ADMIN_PASSWORD_HASH.
package main

import (
	"bytes"
	"fmt"
	"os"
	"syscall"

	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	cfg := config.Load()
	auth := service.NewAuthService(cfg)

	fmt.Fprint(os.Stderr, "Enter Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading password")
		os.Exit(1)
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Confirm Password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil || !bytes.Equal(password, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "Add this to your .env:")
	fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
}

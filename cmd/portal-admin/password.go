package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/auy/thinkers-portal/internal/adapters/devauth"
)

// runHashPassword reads one password line from stdin so it never lands in shell history.
func runHashPassword(cmdCtx *commandContext, _ []string) error {
	scanner := bufio.NewScanner(cmdCtx.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		return errors.New("no password on stdin")
	}
	password := strings.TrimRight(scanner.Text(), "\r")

	hash, err := devauth.HashPassword(password)
	if err != nil {
		return err
	}
	return fprintf(cmdCtx.Stdout, "%s\n", hash)
}

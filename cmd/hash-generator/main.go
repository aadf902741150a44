// Command hash-generator bcrypt-hashes passwords for seeding users directly
// into the database. Admin accounts cannot be created through the API, so
// with -email and -username it prints a ready-to-run INSERT for an admin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	email := flag.String("email", "", "emit an admin INSERT for this email")
	username := flag.String("username", "", "username for the admin INSERT")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *cost, *email, *username, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "hash-generator: %v\n", err)
		os.Exit(1)
	}
}

// run hashes each password from args, or one per line from in when args is
// empty.
func run(in io.Reader, out io.Writer, cost int, email, username string, args []string) error {
	passwords := args
	if len(passwords) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
				passwords = append(passwords, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read passwords: %w", err)
		}
	}
	if len(passwords) == 0 {
		return fmt.Errorf("no password given")
	}
	if email != "" && len(passwords) != 1 {
		return fmt.Errorf("an admin INSERT takes exactly one password, got %d", len(passwords))
	}

	for _, password := range passwords {
		if len(password) < domain.MinPasswordLength || len(password) > domain.MaxPasswordLength {
			return fmt.Errorf("password must be %d-%d bytes", domain.MinPasswordLength, domain.MaxPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		if email == "" {
			fmt.Fprintln(out, string(hash))
			continue
		}
		user := &domain.User{Email: strings.ToLower(email), Username: username, HashedPassword: string(hash), Role: domain.RoleAdmin}
		if err := user.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(out,
			"INSERT INTO users (email, username, hashed_password, role, is_active) VALUES ('%s', '%s', '%s', 'admin', true);\n",
			quote(user.Email), quote(user.Username), user.HashedPassword)
	}
	return nil
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

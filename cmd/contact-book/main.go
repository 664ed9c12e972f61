package main

import (
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/contact-book/internal/app"
)

// Usage example on the command line:
// > go run main.go
// > CONTACTBOOK_DATABASE_PATH=/tmp/contacts.db go run main.go --log-file=/tmp/contact-book.log
func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contact-book:", err)
		os.Exit(1)
	}
}

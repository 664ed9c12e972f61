// Package shell implements the interactive, menu driven console of the contact book.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gitlab.com/dirk.krummacker/contact-book/internal/model"
	"gitlab.com/dirk.krummacker/contact-book/internal/store"
	"go.uber.org/zap"
)

// ContactStore is the part of the contact store the shell works with.
type ContactStore interface {
	Add(ctx context.Context, name, phone, email string) (model.Contact, error)
	ListAll(ctx context.Context) ([]model.Contact, error)
	Search(ctx context.Context, keyword string) ([]model.Contact, error)
	Find(ctx context.Context, id int64) (model.Contact, error)
	Update(ctx context.Context, id int64, changes model.Changes) (model.Contact, error)
	Delete(ctx context.Context, id int64) error
}

// Command is one entry of the main menu.
type Command int

const (
	// Add asks for name, phone and email and stores a new contact.
	Add Command = iota + 1
	// Search lists the contacts whose name, phone or email contains a keyword.
	Search
	// List shows all contacts sorted by name.
	List
	// Update changes the values of a contact. Blank answers keep the current values.
	Update
	// Delete removes a contact after confirmation.
	Delete
	// Exit ends the session.
	Exit
)

// separator frames the main menu.
var separator = strings.Repeat("=", 30)

// menu lists the commands in the order they are shown, together with the input that selects them.
var menu = []struct {
	choice  string
	command Command
	label   string
}{
	{"1", Add, "Add Contact"},
	{"2", Search, "Search Contacts"},
	{"3", List, "List All Contacts"},
	{"4", Update, "Update Contact"},
	{"5", Delete, "Delete Contact"},
	{"6", Exit, "Exit"},
}

// Shell reads commands from an input and writes the results to an output.
type Shell struct {
	store    ContactStore
	in       *bufio.Reader
	out      io.Writer
	log      *zap.Logger
	handlers map[Command]func(ctx context.Context)
}

// New creates a shell on top of the contact store. A nil logger disables logging.
func New(contacts ContactStore, in io.Reader, out io.Writer, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	sh := &Shell{
		store: contacts,
		in:    bufio.NewReader(in),
		out:   out,
		log:   logger.Named("shell"),
	}
	sh.handlers = map[Command]func(ctx context.Context){
		Add:    sh.addContact,
		Search: sh.searchContacts,
		List:   sh.listAllContacts,
		Update: sh.updateContact,
		Delete: sh.deleteContact,
	}
	return sh
}

// Parse maps the trimmed input of the operator to a menu command.
func Parse(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	for _, item := range menu {
		if item.choice == input {
			return item.command, true
		}
	}
	return 0, false
}

// Run shows the menu and executes the chosen commands until the operator exits or the input ends.
func (sh *Shell) Run(ctx context.Context) error {
	sh.println("Welcome to Contact Book!")
	for {
		sh.printMenu()
		input, ok := sh.prompt(fmt.Sprintf("Enter your choice (1-%d): ", len(menu)))
		if !ok {
			sh.println()
			sh.log.Debug("input closed")
			return nil
		}
		command, valid := Parse(input)
		if !valid {
			sh.report(fmt.Sprintf("Invalid choice. Please enter a number from 1 to %d.", len(menu)))
			continue
		}
		if command == Exit {
			sh.println("Goodbye! Thanks for using Contact Book.")
			return nil
		}
		sh.log.Debug("command selected", zap.Int("command", int(command)))
		sh.handlers[command](ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (sh *Shell) printMenu() {
	sh.println()
	sh.println(separator)
	for _, item := range menu {
		sh.printf("%s. %s\n", item.choice, item.label)
	}
	sh.println(separator)
}

func (sh *Shell) addContact(ctx context.Context) {
	sh.println()
	sh.println("--- Add New Contact ---")
	name, _ := sh.prompt("Enter name: ")
	phone, _ := sh.prompt("Enter phone: ")
	email, _ := sh.prompt("Enter email (optional): ")

	_, err := sh.store.Add(ctx, name, phone, email)
	switch {
	case err == nil:
		sh.report("Contact added successfully!")
	case errors.Is(err, store.ErrRequiredFields):
		sh.report("Error: Name and phone are required!")
	case errors.Is(err, store.ErrConstraint):
		sh.report("Error: Phone number already exists or invalid data.")
	default:
		sh.fail("add contact", err)
	}
}

func (sh *Shell) listAllContacts(ctx context.Context) {
	contacts, err := sh.store.ListAll(ctx)
	if err != nil {
		sh.fail("list contacts", err)
		return
	}
	if len(contacts) == 0 {
		sh.report("No contacts found.")
		return
	}
	sh.println()
	sh.println("--- All Contacts ---")
	sh.printContacts(contacts)
}

func (sh *Shell) searchContacts(ctx context.Context) {
	sh.println()
	keyword, _ := sh.prompt("Enter name, phone, or email to search: ")
	contacts, err := sh.store.Search(ctx, keyword)
	if errors.Is(err, store.ErrEmptyKeyword) {
		sh.report("Search keyword cannot be empty.")
		return
	}
	if err != nil {
		sh.fail("search contacts", err)
		return
	}
	if len(contacts) == 0 {
		sh.report("No contacts found matching your search.")
		return
	}
	sh.println()
	sh.printf("--- %d Contact(s) Found ---\n", len(contacts))
	sh.printContacts(contacts)
}

func (sh *Shell) updateContact(ctx context.Context) {
	sh.listAllContacts(ctx)
	sh.println()
	id, ok := sh.promptID("Enter contact ID to update (or press Enter to cancel): ")
	if !ok {
		sh.report("Invalid or cancelled.")
		return
	}
	current, err := sh.store.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		sh.report("Contact ID not found.")
		return
	}
	if err != nil {
		sh.fail("find contact", err)
		return
	}

	sh.println()
	sh.printf("Current: Name: %s, Phone: %s, Email: %s\n", current.Name, current.Phone, current.EmailOr("(none)"))
	sh.println("Leave field blank to keep current value.")
	var changes model.Changes
	changes.Name, _ = sh.prompt(fmt.Sprintf("New name [%s]: ", current.Name))
	changes.Phone, _ = sh.prompt(fmt.Sprintf("New phone [%s]: ", current.Phone))
	changes.Email, _ = sh.prompt(fmt.Sprintf("New email [%s]: ", current.EmailOr("(none)")))

	_, err = sh.store.Update(ctx, id, changes)
	switch {
	case err == nil:
		sh.report("Contact updated successfully!")
	case errors.Is(err, store.ErrNoChanges):
		sh.report("No changes made.")
	case errors.Is(err, store.ErrRequiredFields):
		sh.report("Error: Name and phone cannot be empty!")
	case errors.Is(err, store.ErrNotFound):
		sh.report("Contact ID not found.")
	case errors.Is(err, store.ErrConstraint):
		sh.report("Error: Phone number already exists or invalid data.")
	default:
		sh.fail("update contact", err)
	}
}

func (sh *Shell) deleteContact(ctx context.Context) {
	sh.listAllContacts(ctx)
	sh.println()
	id, ok := sh.promptID("Enter contact ID to delete (or press Enter to cancel): ")
	if !ok {
		sh.report("Invalid or cancelled.")
		return
	}
	confirm, _ := sh.prompt("Are you sure you want to delete this contact? (yes/no): ")
	if !strings.EqualFold(confirm, "yes") {
		sh.report("Deletion cancelled.")
		return
	}

	err := sh.store.Delete(ctx, id)
	switch {
	case err == nil:
		sh.report("Contact deleted successfully!")
	case errors.Is(err, store.ErrNotFound):
		sh.report("Contact ID not found.")
	default:
		sh.fail("delete contact", err)
	}
}

// printContacts writes one line per contact followed by an empty line.
func (sh *Shell) printContacts(contacts []model.Contact) {
	for _, c := range contacts {
		sh.printf("ID: %d | Name: %s | Phone: %s | Email: %s\n", c.Id, c.Name, c.Phone, c.EmailOr("(no email)"))
	}
	sh.println()
}

// fail reports an unexpected store error. The shell keeps running.
func (sh *Shell) fail(operation string, err error) {
	sh.log.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	sh.report(fmt.Sprintf("Error: %v", err))
}

// prompt writes the text and reads one trimmed line. It returns false if the input has ended
// before anything was read.
func (sh *Shell) prompt(text string) (string, bool) {
	sh.printf("%s", text)
	line, err := sh.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err != io.EOF {
			sh.log.Error("read input", zap.Error(err))
		}
		return "", false
	}
	return strings.TrimSpace(line), true
}

// promptID reads a contact id. Only a non-empty sequence of decimal digits is accepted.
func (sh *Shell) promptID(text string) (int64, bool) {
	input, _ := sh.prompt(text)
	if input == "" || strings.TrimLeft(input, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// report writes an outcome message followed by an empty line.
func (sh *Shell) report(message string) {
	fmt.Fprintf(sh.out, "%s\n\n", message)
}

func (sh *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *Shell) println(args ...interface{}) {
	fmt.Fprintln(sh.out, args...)
}

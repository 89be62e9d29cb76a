// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/export"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/storage"
	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// dispatch runs one slash command. The bool result requests exit.
func (r *REPL) dispatch(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch name {
	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		printHelp()
		return false, nil

	case "sessions", "s":
		return false, r.chooseSession(ctx)

	case "new", "n":
		return false, r.newSession(ctx, strings.Join(args, " "))

	case "rename":
		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			return false, errors.New("usage: /rename <new title>")
		}
		sess, err := r.client.RenameSession(ctx, r.state.SessionID, title)
		if err != nil {
			return false, err
		}
		r.session = sess
		fmt.Println("Renamed to:", sess.GetTitle())
		return false, nil

	case "delete":
		if !Confirm("Delete this session and its readings?") {
			return false, nil
		}
		if err := r.client.DeleteSession(ctx, r.state.SessionID); err != nil {
			return false, err
		}
		if r.cache != nil {
			_ = r.cache.DeleteSession(r.state.SessionID)
		}
		return false, r.chooseSession(ctx)

	case "quota":
		return false, r.printQuota(ctx)

	case "account":
		return false, r.printAccount(ctx)

	case "cards":
		return false, r.printDeck(ctx)

	case "journal", "j":
		return false, r.printJournal(ctx, strings.Join(args, " "))

	case "export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		return false, r.exportTranscript(format)

	case "totp":
		return false, r.configureTOTP(strings.Join(args, " "))

	default:
		return false, fmt.Errorf("unknown command %q, try /help", parts[0])
	}
}

func printHelp() {
	fmt.Print(`Commands:
  /sessions        choose another session
  /new [title]     start a new session
  /rename <title>  rename the current session
  /delete          delete the current session
  /journal [query] list (or search) journal entries
  /export [md|json] write the transcript to a file
  /totp <secret>   store a 2FA secret for automatic login codes (off to clear)
  /cards           list the deck
  /quota           readings remaining
  /account         subscription details
  /quit            exit
`)
}

// =============================================================================
// SESSION SELECTION
// =============================================================================

// chooseSession lists sessions and binds the REPL to the chosen one.
func (r *REPL) chooseSession(ctx context.Context) error {
	sessions, err := r.client.ListSessions(ctx)
	if err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.ReplaceSessions(sessions)
	}

	if len(sessions) == 0 {
		return r.newSession(ctx, "")
	}

	fmt.Println("Your readings:")
	for i, s := range sessions {
		fmt.Printf("  %d. %s\n", i+1, s.GetTitle())
	}

	input, err := r.line.Prompt("open (number, or n for new)> ")
	if err != nil {
		return err
	}
	if strings.TrimSpace(input) == "n" {
		return r.newSession(ctx, "")
	}

	idx := parseIndex(input, len(sessions))
	if idx < 0 {
		return errors.New("pick a number from the list")
	}
	return r.openSession(ctx, sessions[idx])
}

func (r *REPL) newSession(ctx context.Context, title string) error {
	sess, err := r.client.CreateSession(ctx, strings.TrimSpace(title))
	if err != nil {
		return err
	}
	r.session = sess
	r.state = chat.NewState(sess.ID)
	fmt.Println("Started:", sess.GetTitle())
	return nil
}

func (r *REPL) openSession(ctx context.Context, sess model.Session) error {
	r.session = sess
	r.state = chat.NewState(sess.ID)

	msgs, err := r.client.ListMessages(ctx, sess.ID)
	if err != nil {
		return err
	}
	for i := range msgs {
		r.state.Messages = append(r.state.Messages, &msgs[i])
	}

	fmt.Printf("Opened %q (%d messages).\n", sess.GetTitle(), len(msgs))
	return nil
}

// parseIndex converts 1-based user input to a slice index, or -1.
func parseIndex(input string, n int) int {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return -1
	}
	return v - 1
}

// =============================================================================
// INFO COMMANDS
// =============================================================================

func (r *REPL) printQuota(ctx context.Context) error {
	q, err := r.client.Quota(ctx)
	if err != nil {
		return err
	}
	r.quota = &q
	if q.Remaining() < 0 {
		fmt.Println("Readings remaining: unlimited")
	} else {
		fmt.Printf("Readings remaining: %s of %s\n",
			util.IntToString(q.Remaining()), util.IntToString(q.TurnsLimit))
	}
	return nil
}

func (r *REPL) printAccount(ctx context.Context) error {
	sub, err := r.client.Subscription(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Plan:", sub.Plan)
	if !sub.Active {
		fmt.Println("Status: inactive")
	}
	if !sub.RenewsAt.IsZero() {
		fmt.Println("Renews:", sub.RenewsAt.Format("Jan 2 2006"))
	}
	fmt.Println("Plan changes and Ethereum checkout are available in the full TUI.")
	return nil
}

func (r *REPL) printDeck(ctx context.Context) error {
	cards, err := r.client.ListCards(ctx)
	if err != nil {
		return err
	}
	for _, c := range cards {
		line := "  " + c.Name
		if c.Suit != "" {
			line += " (" + c.Suit + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// exportTranscript writes the current session to a file in the working
// directory.
func (r *REPL) exportTranscript(format string) error {
	if len(r.state.Messages) == 0 {
		return errors.New("nothing to export yet")
	}

	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	t := &export.Transcript{Session: r.session, Messages: r.state.Messages}
	path, err := export.ExportToFile(t, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// configureTOTP stores or clears the local authenticator secret. The secret
// is verified against a live code from the user's authenticator before it is
// saved, so a mistyped secret never locks the account out of auto-login.
func (r *REPL) configureTOTP(arg string) error {
	if r.store == nil {
		return errors.New("credential store unavailable")
	}

	arg = strings.TrimSpace(arg)
	switch arg {
	case "":
		secret, err := r.store.LoadTOTPSecret()
		if err != nil {
			return err
		}
		if secret == "" {
			fmt.Println("No 2FA secret stored. Usage: /totp <base32 secret>")
		} else {
			fmt.Println("A 2FA secret is stored; login codes are generated automatically.")
		}
		return nil

	case "off":
		if err := r.store.ClearTOTPSecret(); err != nil {
			return err
		}
		fmt.Println("Stored 2FA secret removed.")
		return nil
	}

	code, err := r.line.Prompt("current code from your authenticator app: ")
	if err != nil {
		return err
	}
	if !auth.ValidateTOTP(strings.TrimSpace(code), arg) {
		return errors.New("code does not match that secret; nothing saved")
	}

	if err := r.store.SaveTOTPSecret(arg); err != nil {
		return err
	}
	fmt.Println("2FA secret stored; future logins generate the code for you.")
	return nil
}

// printJournal lists journal entries, filtered by an accent- and
// case-insensitive query when one is given.
func (r *REPL) printJournal(ctx context.Context, query string) error {
	entries, err := r.client.ListJournal(ctx)
	if err != nil {
		return err
	}
	if query = strings.TrimSpace(query); query != "" {
		entries = storage.SearchEntries(entries, query)
	}
	if len(entries) == 0 {
		fmt.Println("No journal entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("  %s  %s\n", e.UpdatedAt.Format("2006-01-02"), e.GetTitle())
	}
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"storefront/internal/session"
)

// =============================================================================
// LOGIN / LOGOUT / REGISTER
// =============================================================================

func runLogin(args []string) {
	fs := newFlagSet("login", "-u USER [options]")
	var username string
	var passwordStdin bool
	fs.StringVar(&username, "u", "", "Username (required)")
	fs.BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	parse(fs, args)

	if username == "" {
		fs.Usage()
		exit(1)
	}
	password := readPassword("Password: ", passwordStdin)

	ctx, a, done := setup()
	defer done()

	profile, err := a.Session.Login(ctx, username, password)
	check("Login failed", err)

	if emit(profile) {
		return
	}
	printSuccess("Signed in as %s", profile.DisplayName())
}

func runLogout(args []string) {
	fs := newFlagSet("logout", "[options]")
	parse(fs, args)

	_, a, done := setup()
	defer done()

	check("Logout", a.Session.Logout())
	printSuccess("Signed out")
}

func runRegister(args []string) {
	fs := newFlagSet("register", "-u USER -email EMAIL [options]")
	var req session.RegisterRequest
	var passwordStdin bool
	fs.StringVar(&req.Username, "u", "", "Username (required)")
	fs.StringVar(&req.Email, "email", "", "Email (required)")
	fs.StringVar(&req.Phone, "phone", "", "Phone number")
	fs.StringVar(&req.FirstName, "first", "", "First name")
	fs.StringVar(&req.LastName, "last", "", "Last name")
	fs.BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	parse(fs, args)

	if req.Username == "" || req.Email == "" {
		fs.Usage()
		exit(1)
	}
	req.Password = readPassword("Password: ", passwordStdin)
	req.Password2 = req.Password
	if !passwordStdin {
		req.Password2 = readPassword("Confirm password: ", false)
	}

	ctx, a, done := setup()
	defer done()

	profile, err := a.Session.Register(ctx, req)
	check("Registration failed", err)

	if emit(profile) {
		return
	}
	printSuccess("Account created, signed in as %s", profile.DisplayName())
}

// =============================================================================
// STATUS / PROFILE
// =============================================================================

func runStatus(args []string) {
	fs := newFlagSet("status", "[options]")
	parse(fs, args)

	_, a, done := setup()
	defer done()

	st, err := a.Session.Status()
	check("Reading session", err)

	if emit(st) {
		return
	}
	if st.State != session.Authenticated {
		printInfo("Not signed in")
		return
	}
	fmt.Printf("Signed in as %s%s%s\n", colorCyan, st.Username, colorReset)
	if !st.AccessExpiresAt.IsZero() {
		left := time.Until(st.AccessExpiresAt).Round(time.Second)
		if left > 0 {
			fmt.Printf("  Access token expires in %s\n", left)
		} else {
			fmt.Printf("  Access token expired %s ago\n", -left)
		}
	}
	if !st.CanRefresh {
		printWarning("No refresh token stored; you will need to sign in again when access expires")
	}
}

func runProfile(args []string) {
	fs := newFlagSet("profile", "[-first NAME] [-last NAME] [-phone PHONE]")
	var update session.ProfileUpdate
	fs.StringVar(&update.FirstName, "first", "", "New first name")
	fs.StringVar(&update.LastName, "last", "", "New last name")
	fs.StringVar(&update.Phone, "phone", "", "New phone number")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	current := a.Session.Profile()
	if current == nil {
		fatal("Not signed in (run 'storefront login')")
	}

	profile := current
	if update != (session.ProfileUpdate{}) {
		// Unset flags keep their current values.
		if update.FirstName == "" {
			update.FirstName = current.FirstName
		}
		if update.LastName == "" {
			update.LastName = current.LastName
		}
		if update.Phone == "" {
			update.Phone = current.Phone
		}
		var err error
		profile, err = a.Session.UpdateProfile(ctx, update)
		check("Updating profile", err)
		printSuccess("Profile updated")
	}

	if emit(profile) {
		return
	}
	fmt.Printf("%s%s%s\n", colorBold, profile.DisplayName(), colorReset)
	fmt.Printf("  Username: %s\n", profile.Username)
	fmt.Printf("  Email:    %s\n", profile.Email)
	if profile.Phone != "" {
		fmt.Printf("  Phone:    %s\n", profile.Phone)
	}
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword prompts on the terminal without echo, or reads one line from
// stdin when fromStdin is set or stdin is not a terminal.
func readPassword(prompt string, fromStdin bool) string {
	fd := int(os.Stdin.Fd())
	if fromStdin || !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			fatal("Reading password: %v", err)
		}
		return strings.TrimRight(line, "\r\n")
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatal("Reading password: %v", err)
	}
	return string(b)
}

package admincli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/services"
)

// AdminService is the account maintenance used by the commands.
type AdminService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	FindUser(ctx context.Context, identifier string) (*models.User, error)
	UpdateRole(ctx context.Context, actorID, targetID int64, role models.Role) error
	Unlock(ctx context.Context, userID int64) error
	ResetPassword(ctx context.Context, identifier, password string) error
	ManualVerify(ctx context.Context, email string) (*models.User, error)
	CreateVerifiedUser(ctx context.Context, in services.CreateUserInput) (*models.User, error)
}

// LinkService resolves pending verification links.
type LinkService interface {
	VerificationLink(ctx context.Context, email string) (string, error)
}

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage error")

// systemActor is the actor ID of CLI changes. No account has ID 0, so
// self-modification checks never trigger.
const systemActor int64 = 0

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"create-user":       {usage: "create-user -username NAME -email EMAIL [-role admin|staff]", run: (*App).createUser},
	"reset-password":    {usage: "reset-password USERNAME|EMAIL", run: (*App).resetPassword},
	"verify":            {usage: "verify EMAIL", run: (*App).verify},
	"unlock":            {usage: "unlock USERNAME|EMAIL", run: (*App).unlock},
	"set-role":          {usage: "set-role USERNAME|EMAIL admin|staff", run: (*App).setRole},
	"list-users":        {usage: "list-users", run: (*App).listUsers},
	"verification-link": {usage: "verification-link EMAIL", run: (*App).verificationLink},
}

type App struct {
	admin  AdminService
	links  LinkService
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewApp(admin AdminService, links LinkService, in io.Reader, out io.Writer) *App {
	return &App{admin: admin, links: links, reader: bufio.NewReader(in), out: out, now: time.Now}
}

// CommandArgs drops everything before the first known command name, so
// server configuration flags can precede it.
func CommandArgs(args []string) []string {
	for i, a := range args {
		if _, ok := commands[a]; ok || a == "help" {
			return args[i:]
		}
	}
	return nil
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintln(a.out, "Unknown command:", args[0])
		a.usage()
		return ErrUsage
	}

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(a.out, "Usage: gims-admin", cmd.usage)
		}
		return err
	}
	return nil
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(a.out, "Usage: gims-admin [server flags] COMMAND [args]")
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range names {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
}

// Describe turns a service error into an operator-facing message.
func Describe(err error) string {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return "invalid input: " + strings.Join(parts, "; ")
	case errors.Is(err, common.ErrorNotFound):
		return "user not found"
	case errors.Is(err, common.ErrDuplicateAccount):
		return "a user with that username or email already exists"
	case errors.Is(err, common.ErrAlreadyVerified):
		return "email is already verified"
	case errors.Is(err, common.ErrTokenNotFound):
		return "no pending verification token"
	case errors.Is(err, common.ErrTokenExpired):
		return "verification token has expired, ask the user to request a new one"
	}
	return err.Error()
}

func exactArgs(args []string, n int) error {
	if len(args) != n {
		return ErrUsage
	}
	return nil
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "account username")
	email := fs.String("email", "", "account email")
	role := fs.String("role", string(models.RoleStaff), "admin or staff")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}

	var err error
	if *username == "" {
		if *username, err = getSimpleText(a.reader, "Username", a.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
			return err
		}
	}

	password, err := getNewPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.admin.CreateVerifiedUser(ctx, services.CreateUserInput{
		Username: *username,
		Email:    *email,
		Password: password,
		Role:     models.Role(*role),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created %s user %s (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}

func (a *App) resetPassword(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	password, err := getNewPassword(a.out)
	if err != nil {
		return err
	}
	if err := a.admin.ResetPassword(ctx, args[0], password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password reset for %s\n", args[0])
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	user, err := a.admin.ManualVerify(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Verified %s <%s>\n", user.Username, user.Email)
	return nil
}

func (a *App) unlock(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	user, err := a.admin.FindUser(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.admin.Unlock(ctx, user.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Unlocked %s\n", user.Username)
	return nil
}

func (a *App) setRole(ctx context.Context, args []string) error {
	if err := exactArgs(args, 2); err != nil {
		return err
	}
	user, err := a.admin.FindUser(ctx, args[0])
	if err != nil {
		return err
	}
	role := models.Role(args[1])
	if err := a.admin.UpdateRole(ctx, systemActor, user.ID, role); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", user.Username, role)
	return nil
}

func (a *App) listUsers(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	list, err := a.admin.ListUsers(ctx)
	if err != nil {
		return err
	}

	now := a.now()
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tVERIFIED\tSTATE")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, yesNo(u.EmailVerified), lockState(u, now))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func lockState(u *models.User, now time.Time) string {
	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		return "locked until " + u.LockedUntil.UTC().Format(time.RFC3339)
	}
	if u.FailedLoginAttempts > 0 {
		return fmt.Sprintf("%d failed attempts", u.FailedLoginAttempts)
	}
	return "active"
}

func (a *App) verificationLink(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	link, err := a.links.VerificationLink(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, link)
	return nil
}

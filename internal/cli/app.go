// Package cli implements the swiftctl command line on top of the API client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"swiftfiles/internal/client"
)

// ErrUsage is returned for malformed command lines. Usage has been printed.
var ErrUsage = errors.New("invalid usage")

const usage = `Usage: swiftctl <command> [arguments]

Commands:
  register [email]           create an account
  login [email]              sign in and remember the token
  logout                     forget the stored token
  whoami                     show the signed-in user
  upload <path>              upload a file and print its share link
  ls                         list your files
  info <share-id>            show a shared file
  download [-o path] <share-id>
                             download a shared file ("-o -" writes to stdout)
  rm <file-id>               delete one of your files
`

// App runs one swiftctl command against a session.
type App struct {
	session *client.Session
	in      *bufio.Reader
	out     io.Writer
	errOut  io.Writer
}

// NewApp creates an App reading prompts from in and printing to out and errOut.
func NewApp(session *client.Session, in io.Reader, out, errOut io.Writer) *App {
	return &App{session: session, in: bufio.NewReader(in), out: out, errOut: errOut}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami(ctx)
	case "upload":
		return a.upload(ctx, rest)
	case "ls", "list":
		return a.list(ctx)
	case "info":
		return a.info(ctx, rest)
	case "download", "get":
		return a.download(ctx, rest)
	case "rm", "delete":
		return a.remove(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.errOut, "Unknown command: %s\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *App) credentials(args []string) (string, string, error) {
	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}
	if email == "" {
		var err error
		email, err = GetSimpleText(a.in, "Enter email", a.out)
		if err != nil {
			return "", "", err
		}
	}
	password, err := GetPassword(a.in, a.out)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func (a *App) register(ctx context.Context, args []string) error {
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	user, err := a.session.Client().Register(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created for %s. Run 'swiftctl login' to sign in.\n", user.Email)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	user, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
	return nil
}

func (a *App) logout() error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	user, err := a.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", user.Email, user.ID)
	return nil
}

func (a *App) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "Usage: swiftctl upload <path>")
		return ErrUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	file, err := a.session.Upload(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s (%s)\n", file.Name, humanSize(file.Size))
	fmt.Fprintf(a.out, "Share link:    %s\n", file.ShareURL)
	fmt.Fprintf(a.out, "Download link: %s\n", file.DownloadURL)
	return nil
}

func (a *App) list(ctx context.Context) error {
	files, err := a.session.ListFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files yet")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPLOADED\tSHARE ID")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Name, humanSize(f.Size), f.CreatedAt.Local().Format(time.DateTime), f.ShareID)
	}
	return tw.Flush()
}

func (a *App) info(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "Usage: swiftctl info <share-id>")
		return ErrUsage
	}
	file, err := a.session.Client().SharedFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Name:     %s\n", file.Name)
	fmt.Fprintf(a.out, "Size:     %s\n", humanSize(file.Size))
	fmt.Fprintf(a.out, "Type:     %s\n", file.Type)
	fmt.Fprintf(a.out, "Uploaded: %s\n", file.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(a.out, "Download: %s\n", file.DownloadURL)
	return nil
}

func (a *App) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	output := fs.String("o", "", "output path, or - for stdout")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "Usage: swiftctl download [-o path] <share-id>")
		return ErrUsage
	}
	shareID := fs.Arg(0)

	if *output == "-" {
		_, err := a.session.Client().Download(ctx, shareID, a.out)
		return err
	}

	dir := "."
	if *output != "" {
		dir = filepath.Dir(*output)
	}
	tmp, err := os.CreateTemp(dir, ".swiftctl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	info, err := a.session.Client().Download(ctx, shareID, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	dest := *output
	if dest == "" {
		dest = localName(info.Name, shareID)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%s)\n", dest, humanSize(info.Size))
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "Usage: swiftctl rm <file-id>")
		return ErrUsage
	}
	if err := a.session.DeleteFile(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// localName keeps only the base of a server-supplied name.
func localName(name, fallback string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." || base == "" {
		return fallback
	}
	return base
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

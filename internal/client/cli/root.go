package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/client/preview"
	"github.com/dmitrijs2005/docsafe/internal/client/services"
	"github.com/dmitrijs2005/docsafe/internal/client/transport"
	"github.com/dmitrijs2005/docsafe/internal/common"
)

const rootHelp = `Commands:
  register <username>    create an account
  login <username>       log in and unlock the vault
  lock                   wipe the key and the session snapshot
  upload <file> [...]    encrypt and upload files as one batch
  list                   list stored documents
  preview <document-id>  fetch, decrypt and show a document
  help                   show this help
  quit                   exit`

// Root runs the interactive command loop until quit or EOF.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, rootHelp)

	for {
		line, err := GetSimpleText(a.reader, "", a.out)
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			fmt.Fprintln(a.out, rootHelp)
		case "register":
			a.cmdRegister(ctx, args)
		case "login":
			a.cmdLogin(ctx, args)
		case "lock":
			a.auth.Logout(ctx)
			fmt.Fprintln(a.out, "Locked.")
		case "upload":
			a.cmdUpload(ctx, args)
		case "list":
			a.listDocuments(ctx)
		case "preview":
			a.cmdPreview(ctx, args)
		default:
			fmt.Fprintf(a.out, "unknown command %q (try help)\n", cmd)
		}
	}
}

func (a *App) cmdRegister(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: register <username>")
		return
	}
	pw, err := GetPassphrase(a.out)
	if err != nil {
		fmt.Fprintf(a.out, "cannot read passphrase: %v\n", err)
		return
	}
	defer common.WipeByteArray(pw)

	if err := a.auth.Register(ctx, args[0], pw); err != nil {
		fmt.Fprintf(a.out, "register failed: %v\n", err)
		return
	}
	fmt.Fprintln(a.out, "Registered. You can now log in.")
}

func (a *App) cmdLogin(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: login <username>")
		return
	}
	pw, err := GetPassphrase(a.out)
	if err != nil {
		fmt.Fprintf(a.out, "cannot read passphrase: %v\n", err)
		return
	}
	defer common.WipeByteArray(pw)

	if err := a.auth.Login(ctx, args[0], pw); err != nil {
		switch {
		case errors.Is(err, common.ErrDerivationFailed):
			fmt.Fprintln(a.out, "Could not derive a key from that passphrase, try again.")
		case errors.Is(err, transport.ErrUnavailable):
			fmt.Fprintln(a.out, "Server unavailable.")
		default:
			fmt.Fprintf(a.out, "login failed: %v\n", err)
		}
		return
	}
	fmt.Fprintln(a.out, "Unlocked.")
}

func (a *App) cmdUpload(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "usage: upload <file> [...]")
		return
	}
	if !a.session.HasKey() && !a.session.RestoreIfAvailable() {
		fmt.Fprintln(a.out, "Vault is locked, log in first.")
		return
	}

	files := make([]services.UploadFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(a.out, "cannot read %s: %v\n", path, err)
			return
		}
		files = append(files, services.UploadFile{Name: path, Data: data})
	}

	batchID, err := a.docs.UploadBatch(ctx, files)
	if err != nil {
		fmt.Fprintf(a.out, "upload failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Uploading %d file(s), batch %s...\n", len(files), batchID)
}

func (a *App) cmdPreview(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: preview <document-id>")
		return
	}

	out := a.preview.Preview(ctx, args[0], a.config.PreviewDeadline)
	switch out.State {
	case preview.StateReady:
		// the renderer already printed the document
	case preview.StateTimedOut:
		fmt.Fprintf(a.out, "Preview of %s timed out after %s; try downloading instead.\n", out.DocumentID, out.Elapsed.Round(time.Millisecond))
	default:
		switch {
		case errors.Is(out.Err, common.ErrNoKey):
			fmt.Fprintln(a.out, "Vault is locked, log in first.")
		case errors.Is(out.Err, common.ErrAuthenticationFailed):
			fmt.Fprintln(a.out, "Cannot decrypt this document.")
		default:
			fmt.Fprintf(a.out, "preview failed: %v\n", out.Err)
		}
	}
}

// Package cli is the interactive client: a small REPL over the session
// manager, the upload pipeline and the preview orchestrator.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/dmitrijs2005/docsafe/internal/client/batch"
	"github.com/dmitrijs2005/docsafe/internal/client/config"
	"github.com/dmitrijs2005/docsafe/internal/client/preview"
	"github.com/dmitrijs2005/docsafe/internal/client/services"
	"github.com/dmitrijs2005/docsafe/internal/client/session"
	"github.com/dmitrijs2005/docsafe/internal/client/transport"
	"github.com/dmitrijs2005/docsafe/internal/envelope"
	"github.com/dmitrijs2005/docsafe/internal/logging"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	session *session.Manager
	auth    services.AuthService
	docs    *services.DocumentService
	coord   *batch.Coordinator
	preview *preview.Orchestrator

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	store := session.NewMemoryStore()
	sess := session.NewManager(store)
	// pick up a key left by a previous manager bound to the same session
	sess.RestoreIfAvailable()

	apiClient := transport.NewHTTPClient(c.ServerEndpointAddr)
	codec := envelope.NewCodec(sess)

	app := &App{
		config:  c,
		logger:  logger,
		session: sess,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	app.coord = batch.NewCoordinator(app.onBatchComplete)
	app.auth = services.NewAuthService(apiClient, sess)
	app.docs = services.NewDocumentService(apiClient, codec, app.coord, logger)
	app.preview = preview.NewOrchestrator(apiClient, codec, stdoutRenderer{out: app.out}, logger)

	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.auth.Close(ctx)
	a.Root(ctx)
}

// onBatchComplete prints per-item results and refreshes the document
// listing, the consumer side of the coordinator contract.
func (a *App) onBatchComplete(r batch.Result) {
	items := append([]batch.ItemResult(nil), r.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })

	fmt.Fprintf(a.out, "Batch %s finished:\n", r.BatchID)
	for _, it := range items {
		switch it.Status {
		case batch.StatusCompleted:
			fmt.Fprintf(a.out, "  %s -> %s\n", it.ItemID, it.DocumentID)
		case batch.StatusFailed:
			fmt.Fprintf(a.out, "  %s FAILED: %v\n", it.ItemID, it.Err)
		}
	}
	a.coord.Forget(r.BatchID)

	a.listDocuments(context.Background())
}

func (a *App) listDocuments(ctx context.Context) {
	docs, err := a.docs.List(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "cannot list documents: %v\n", err)
		return
	}
	for _, d := range docs {
		fmt.Fprintf(a.out, "%s  %s  %d bytes\n", d.ID, d.Name, d.Size)
	}
}

// stdoutRenderer is the terminal's stand-in for a preview pane.
type stdoutRenderer struct {
	out io.Writer
}

func (r stdoutRenderer) Render(documentID string, plaintext []byte) error {
	_, err := fmt.Fprintf(r.out, "--- %s (%d bytes) ---\n%s\n", documentID, len(plaintext), plaintext)
	return err
}

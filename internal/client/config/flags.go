package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the backend server (default from Config)
//	-p int      preview deadline in seconds (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the backend server")
	previewDeadline := fs.Int("p", int(cfg.PreviewDeadline.Seconds()), "preview deadline (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PreviewDeadline = time.Duration(*previewDeadline) * time.Second
}
